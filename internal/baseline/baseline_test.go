package baseline

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_OpenInitializesSchemaAndRoundtrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	entries := []Entry{
		{Path: "src/App.vue", Property: "total", Ordinal: 0},
		{Path: "src/App.vue", Property: "total", Ordinal: 1},
		{Path: "src/Cart.vue", Property: "items.count", Ordinal: 0},
	}
	run, err := store.Update("shop", entries)
	if err != nil {
		t.Fatalf("update baseline: %v", err)
	}
	if run.ID == "" || run.Findings != 3 {
		t.Fatalf("unexpected run: %+v", run)
	}

	known, err := store.Known("shop")
	if err != nil {
		t.Fatalf("load known: %v", err)
	}
	if len(known) != 3 {
		t.Fatalf("expected 3 fingerprints, got %d", len(known))
	}
	for _, e := range entries {
		if !known[e.Fingerprint()] {
			t.Fatalf("fingerprint missing for %+v", e)
		}
	}

	last, err := store.LastRun("shop")
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if last == nil || last.ID != run.ID || last.Findings != 3 {
		t.Fatalf("unexpected last run: %+v", last)
	}
}

func TestStore_UpdateReplacesPrevious(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first := Entry{Path: "a.vue", Property: "x", Ordinal: 0}
	second := Entry{Path: "b.vue", Property: "y", Ordinal: 0}

	if _, err := store.Update("", []Entry{first, second}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update("", []Entry{second}); err != nil {
		t.Fatal(err)
	}

	known, err := store.Known("")
	if err != nil {
		t.Fatal(err)
	}
	if len(known) != 1 || !known[second.Fingerprint()] {
		t.Fatalf("expected only the second fingerprint to survive, got %d entries", len(known))
	}

	last, err := store.LastRun("")
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.Findings != 1 {
		t.Fatalf("unexpected last run: %+v", last)
	}
}

func TestStore_ProjectIsolation(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a := Entry{Path: "a.vue", Property: "x", Ordinal: 0}
	b := Entry{Path: "b.vue", Property: "y", Ordinal: 0}
	if _, err := store.Update("project-a", []Entry{a}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update("project-b", []Entry{b}); err != nil {
		t.Fatal(err)
	}

	knownA, err := store.Known("project-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(knownA) != 1 || !knownA[a.Fingerprint()] {
		t.Fatalf("unexpected project-a fingerprints: %v", knownA)
	}
	knownB, err := store.Known("project-b")
	if err != nil {
		t.Fatal(err)
	}
	if len(knownB) != 1 || !knownB[b.Fingerprint()] {
		t.Fatalf("unexpected project-b fingerprints: %v", knownB)
	}
}

func TestStore_LastRunEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	last, err := store.LastRun("fresh")
	if err != nil {
		t.Fatalf("last run on empty store: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil run, got %+v", last)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEntry_Fingerprint(t *testing.T) {
	e := Entry{Path: "src/App.vue", Property: "total", Ordinal: 0}
	if got := e.Fingerprint(); got != e.Fingerprint() {
		t.Fatal("fingerprint must be deterministic")
	}
	if len(e.Fingerprint()) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(e.Fingerprint()))
	}
	other := Entry{Path: "src/App.vue", Property: "total", Ordinal: 1}
	if e.Fingerprint() == other.Fingerprint() {
		t.Fatal("ordinal must distinguish repeated findings")
	}
}
