package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"proplint/internal/observability"
	"proplint/internal/report"
	"proplint/internal/rule"
	"proplint/internal/util"
	"proplint/internal/watcher"
)

// StartWatch installs a filesystem watcher on the scan roots and
// re-analyzes changed files as batches arrive. It returns once the
// watcher is running; results reach the update handler, or stdout when
// none is set.
func (a *App) StartWatch(ctx context.Context) error {
	a.limiter = util.NewLimiter(a.Config.Watch.RatePerSec, a.Config.Watch.Burst)

	w, err := watcher.NewWatcher(
		time.Duration(a.Config.Watch.DebounceMS)*time.Millisecond,
		a.Config.Scan.Exclude,
		func(paths []string) { a.handleChanges(ctx, paths) },
	)
	if err != nil {
		return err
	}
	a.watch = w
	return w.Watch(watchRoots(normalizeRoots(a.Config.Scan.Roots)))
}

// watchRoots maps file roots to their directories; the watcher installs
// on directories.
func watchRoots(roots []string) []string {
	seen := make(map[string]bool, len(roots))
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		if !seen[root] {
			seen[root] = true
			out = append(out, root)
		}
	}
	return out
}

func (a *App) handleChanges(ctx context.Context, paths []string) {
	if err := a.limiter.Wait(ctx, 1); err != nil {
		return
	}

	slog.Info("detected changes", "count", len(paths))
	observability.WatcherEventsTotal.Inc()
	start := time.Now()

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.stateMu.Lock()
			delete(a.reports, path)
			delete(a.failures, path)
			a.stateMu.Unlock()
			continue
		}

		outcome := a.analyzeOne(ctx, path)
		a.stateMu.Lock()
		switch {
		case outcome.report != nil:
			a.reports[path] = outcome.report
			delete(a.failures, path)
		case outcome.failure != nil:
			a.failures[path] = outcome.failure.Err
			delete(a.reports, path)
		}
		a.stateMu.Unlock()
	}

	result, err := a.cachedResult(time.Since(start))
	if err != nil {
		slog.Error("failed to assemble rescan result", "error", err)
		return
	}

	if a.Config.Output.Path != "" {
		if err := a.WriteReport(result); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	}

	if !a.emitUpdate(Update{Data: result.Data, Duration: result.Duration}) {
		a.printSummary(result)
	}
}

// cachedResult rebuilds a Result from the per-file cache, reapplying
// the baseline filter.
func (a *App) cachedResult(duration time.Duration) (*Result, error) {
	a.stateMu.Lock()
	reports := make([]rule.FileReport, 0, len(a.reports))
	for _, rep := range a.reports {
		reports = append(reports, *rep)
	}
	failures := make([]report.Failure, 0, len(a.failures))
	for path, msg := range a.failures {
		failures = append(failures, report.Failure{Path: path, Err: msg})
	}
	a.stateMu.Unlock()

	return a.assemble(reports, failures, len(reports)+len(failures), duration)
}

// printSummary writes the text summary to stdout after a rescan when no
// UI owns the terminal.
func (a *App) printSummary(result *Result) {
	wd, _ := os.Getwd()
	opts := report.Options{
		ProjectName: filepath.Base(wd),
		ProjectRoot: wd,
		Version:     a.Version,
		GeneratedAt: time.Now().UTC(),
	}
	os.Stdout.WriteString(report.GenerateText(result.Data, opts))
}
