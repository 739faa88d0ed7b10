package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"proplint/internal/observability"
)

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app == nil || s.app.analyzer == nil {
		status.Status = "degraded"
		status.Components["analyzer"] = "missing"
		return status
	}
	status.Components["analyzer"] = "ok"

	// Check roots
	missing := 0
	for _, root := range s.app.Config.Scan.Roots {
		if _, err := os.Stat(strings.TrimSpace(root)); err != nil {
			missing++
		}
	}
	if missing > 0 {
		status.Status = "degraded"
		status.Components["roots"] = fmt.Sprintf("%d of %d missing", missing, len(s.app.Config.Scan.Roots))
	} else {
		status.Components["roots"] = fmt.Sprintf("ok (%d)", len(s.app.Config.Scan.Roots))
	}

	// Check baseline store
	if path := strings.TrimSpace(s.app.Config.Baseline.Path); path != "" {
		s.app.baselineMu.Lock()
		open := s.app.baseline != nil
		s.app.baselineMu.Unlock()
		switch {
		case open:
			status.Components["baseline"] = "ok"
		case pathExists(path):
			status.Components["baseline"] = "recorded, not loaded"
		default:
			status.Components["baseline"] = "not recorded"
		}
	}

	// Check watcher
	if s.app.watch != nil {
		status.Components["watcher"] = "ok"
	}

	s.app.stateMu.Lock()
	tracked := len(s.app.reports) + len(s.app.failures)
	s.app.stateMu.Unlock()
	status.Components["files"] = fmt.Sprintf("%d tracked", tracked)

	return status
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
