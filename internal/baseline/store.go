// Package baseline persists accepted findings between runs. A scan
// filtered through the baseline reports only what appeared since the
// accepted state, so the tool can be adopted on a codebase that still
// carries known violations.
package baseline

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Entry identifies one accepted finding. Ordinal numbers repeated
// references to the same property within a file; line numbers stay out
// of the fingerprint so edits elsewhere in the file do not invalidate
// it.
type Entry struct {
	Path     string
	Property string
	Ordinal  int
}

// Fingerprint returns the stable identity of the entry.
func (e Entry) Fingerprint() string {
	h := sha256.Sum256([]byte(e.Path + "\x00" + e.Property + "\x00" + strconv.Itoa(e.Ordinal)))
	return hex.EncodeToString(h[:])
}

// Run records one baseline update.
type Run struct {
	ID         string
	ProjectKey string
	Timestamp  time.Time
	Findings   int
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("baseline path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("baseline path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create baseline directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite baseline %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite baseline %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Update replaces the project's accepted findings with the given
// entries and records the run.
func (s *Store) Update(projectKey string, entries []Entry) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := Run{
		ID:         uuid.NewString(),
		ProjectKey: normalizeProject(projectKey),
		Timestamp:  time.Now().UTC(),
		Findings:   len(entries),
	}

	err := s.withRetry("update baseline", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM findings WHERE project_key = ?`, run.ProjectKey); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO runs (id, project_key, ts_utc, finding_count) VALUES (?, ?, ?, ?)`,
			run.ID, run.ProjectKey, run.Timestamp.Format(time.RFC3339Nano), run.Findings,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		stmt, err := tx.Prepare(
			`INSERT OR REPLACE INTO findings (project_key, fingerprint, path, property, run_id) VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, e := range entries {
			if _, err := stmt.Exec(run.ProjectKey, e.Fingerprint(), e.Path, e.Property, run.ID); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return err
			}
		}
		_ = stmt.Close()
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// Known returns the fingerprints currently accepted for the project.
func (s *Store) Known(projectKey string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load baseline", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT fingerprint FROM findings WHERE project_key = ?`,
			normalizeProject(projectKey),
		)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan baseline row: %w", err)
		}
		known[fp] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baseline rows: %w", err)
	}
	return known, nil
}

// LastRun returns the most recent update for the project, or nil when
// the baseline has never been written.
func (s *Store) LastRun(projectKey string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		run   Run
		tsRaw string
	)
	err := s.withRetry("load last run", func() error {
		return s.db.QueryRow(
			`SELECT id, project_key, ts_utc, finding_count FROM runs WHERE project_key = ? ORDER BY ts_utc DESC LIMIT 1`,
			normalizeProject(projectKey),
		).Scan(&run.ID, &run.ProjectKey, &tsRaw, &run.Findings)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
	}
	run.Timestamp = ts.UTC()
	return &run, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func normalizeProject(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return "default"
	}
	return projectKey
}
