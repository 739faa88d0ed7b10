// Package app orchestrates scans: file discovery, parallel analysis,
// baseline filtering, and report assembly.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"proplint/internal/baseline"
	"proplint/internal/config"
	"proplint/internal/core/errors"
	"proplint/internal/observability"
	"proplint/internal/report"
	"proplint/internal/rule"
	"proplint/internal/util"
	"proplint/internal/watcher"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// baselineProject keys baseline rows; one database lives per project
// tree, so a single key suffices.
const baselineProject = "default"

// Update is a snapshot of analysis state pushed to the update handler
// after every scan or rescan.
type Update struct {
	Data     report.Data
	Duration time.Duration
}

// Result is the outcome of one scan. Data holds the baseline-filtered
// view used for reporting; Raw keeps every finding so a baseline update
// records suppressed ones too.
type Result struct {
	Data     report.Data
	Raw      []rule.FileReport
	Duration time.Duration
}

type App struct {
	Config  *config.Config
	Version string

	analyzer *rule.Analyzer
	excludes []glob.Glob

	baselineMu sync.Mutex
	baseline   *baseline.Store

	updateMu sync.RWMutex
	onUpdate func(Update)

	// Cached per-file outcomes for incremental watch updates.
	stateMu  sync.Mutex
	reports  map[string]*rule.FileReport
	failures map[string]string

	limiter *util.Limiter
	watch   *watcher.Watcher
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidation, "config is required")
	}

	analyzer, err := rule.NewAnalyzer(rule.Options{
		Ignores:        cfg.Rule.Ignores,
		PropsOnlySetup: cfg.Rule.PropsOnlySetupEnabled(),
	})
	if err != nil {
		return nil, err
	}

	excludes := make([]glob.Glob, 0, len(cfg.Scan.Exclude))
	for _, pattern := range cfg.Scan.Exclude {
		if norm := util.NormalizePatternPath(pattern); norm != "" {
			pattern = norm
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, fmt.Sprintf("invalid exclude pattern %q", pattern))
		}
		excludes = append(excludes, g)
	}

	return &App{
		Config:   cfg,
		analyzer: analyzer,
		excludes: excludes,
		reports:  make(map[string]*rule.FileReport),
		failures: make(map[string]string),
	}, nil
}

func (a *App) Close() error {
	if a.watch != nil {
		a.watch.Close()
	}

	a.baselineMu.Lock()
	defer a.baselineMu.Unlock()
	if a.baseline != nil {
		err := a.baseline.Close()
		a.baseline = nil
		return err
	}
	return nil
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(update Update) bool {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler == nil {
		return false
	}
	handler(update)
	return true
}

// RunScan walks the configured roots, analyzes every source file on a
// bounded worker pool, and assembles the baseline-filtered result.
func (a *App) RunScan(ctx context.Context) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Scan", trace.WithAttributes(
		attribute.Int("roots", len(a.Config.Scan.Roots)),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	files, err := a.CollectFiles(normalizeRoots(a.Config.Scan.Roots))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "collect_files")
	}

	reports, failures := a.analyzeFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.stateMu.Lock()
	a.reports = make(map[string]*rule.FileReport, len(reports))
	for i := range reports {
		a.reports[reports[i].File] = &reports[i]
	}
	a.failures = make(map[string]string, len(failures))
	for _, f := range failures {
		a.failures[f.Path] = f.Err
	}
	a.stateMu.Unlock()

	result, err := a.assemble(reports, failures, len(files), time.Since(start))
	if err != nil {
		return nil, err
	}

	observability.ScanDuration.Observe(result.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("files", len(files)),
		attribute.Int("findings", result.Data.FindingCount()),
	)
	slog.Info("scan complete",
		"files", len(files),
		"findings", result.Data.FindingCount(),
		"suppressed", result.Data.Suppressed,
		"duration", result.Duration)

	a.emitUpdate(Update{Data: result.Data, Duration: result.Duration})
	return result, nil
}

// CollectFiles gathers the source files under roots, pruning excluded
// directories. Roots may name single files.
func (a *App) CollectFiles(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("stat scan root %q", root))
		}

		if !info.IsDir() {
			if watcher.IsSource(root) {
				files = util.AppendUnique(files, seen, root)
			}
			continue
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && a.excludedDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !watcher.IsSource(path) || a.excludedFile(path) {
				return nil
			}
			files = util.AppendUnique(files, seen, path)
			return nil
		})
		if walkErr != nil {
			return nil, errors.Wrap(walkErr, errors.CodeIO, fmt.Sprintf("walk scan root %q", root))
		}
	}

	sort.Strings(files)
	return files, nil
}

type fileOutcome struct {
	report  *rule.FileReport
	failure *report.Failure
}

func (a *App) analyzeFiles(ctx context.Context, files []string) ([]rule.FileReport, []report.Failure) {
	if len(files) == 0 {
		return nil, nil
	}

	outcomes := make([]fileOutcome, len(files))
	next := make(chan int)
	go func() {
		defer close(next)
		for i := range files {
			select {
			case next <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < a.jobCount(len(files)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				outcomes[i] = a.analyzeOne(ctx, files[i])
			}
		}()
	}
	wg.Wait()

	var reports []rule.FileReport
	var failures []report.Failure
	for _, o := range outcomes {
		switch {
		case o.report != nil:
			reports = append(reports, *o.report)
		case o.failure != nil:
			failures = append(failures, *o.failure)
		}
	}
	return reports, failures
}

func (a *App) jobCount(files int) int {
	jobs := a.Config.Scan.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > files {
		jobs = files
	}
	if jobs < 1 {
		jobs = 1
	}
	return jobs
}

func (a *App) analyzeOne(ctx context.Context, path string) fileOutcome {
	_, span := observability.Tracer.Start(ctx, "app.AnalyzeFile", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	kind := "script"
	if strings.EqualFold(filepath.Ext(path), ".vue") {
		kind = "component"
	}
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read file", "path", path, "error", err)
		observability.ParseFailuresTotal.Inc()
		return fileOutcome{failure: &report.Failure{Path: path, Err: err.Error()}}
	}

	rep, err := a.analyzer.AnalyzeFile(path, content)
	if err != nil {
		slog.Warn("failed to analyze file", "path", path, "error", err)
		observability.ParseFailuresTotal.Inc()
		return fileOutcome{failure: &report.Failure{Path: path, Err: err.Error()}}
	}

	observability.FilesScannedTotal.Inc()
	if rep.Partial {
		observability.PartialAnalysesTotal.Inc()
	}
	if n := len(rep.Diagnostics); n > 0 {
		observability.FindingsTotal.Add(float64(n))
	}
	return fileOutcome{report: rep}
}

func (a *App) assemble(reports []rule.FileReport, failures []report.Failure, scanned int, duration time.Duration) (*Result, error) {
	filtered, suppressed, err := a.applyBaseline(reports)
	if err != nil {
		return nil, err
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].File < filtered[j].File })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })

	return &Result{
		Data: report.Data{
			Files:      filtered,
			Scanned:    scanned,
			Suppressed: suppressed,
			Failures:   failures,
		},
		Raw:      reports,
		Duration: duration,
	}, nil
}

func (a *App) applyBaseline(reports []rule.FileReport) ([]rule.FileReport, int, error) {
	filtered := make([]rule.FileReport, 0, len(reports))

	store, err := a.baselineStore(false)
	if err != nil {
		return nil, 0, err
	}
	if store == nil {
		return append(filtered, reports...), 0, nil
	}

	known, err := store.Known(baselineProject)
	if err != nil {
		return nil, 0, err
	}
	if len(known) == 0 {
		return append(filtered, reports...), 0, nil
	}

	suppressed := 0
	for _, rep := range reports {
		kept := rule.FileReport{File: rep.File, Partial: rep.Partial}
		ordinals := make(map[string]int, len(rep.Diagnostics))
		for _, d := range rep.Diagnostics {
			ord := ordinals[d.Property]
			ordinals[d.Property]++
			entry := baseline.Entry{Path: fingerprintPath(rep.File), Property: d.Property, Ordinal: ord}
			if known[entry.Fingerprint()] {
				suppressed++
				continue
			}
			kept.Diagnostics = append(kept.Diagnostics, d)
		}
		filtered = append(filtered, kept)
	}

	if suppressed > 0 {
		observability.BaselineSuppressedTotal.Add(float64(suppressed))
	}
	return filtered, suppressed, nil
}

// UpdateBaseline records every finding of result, including currently
// suppressed ones, as the new accepted set.
func (a *App) UpdateBaseline(result *Result) (baseline.Run, error) {
	store, err := a.baselineStore(true)
	if err != nil {
		return baseline.Run{}, err
	}
	if store == nil {
		return baseline.Run{}, errors.New(errors.CodeValidation, "baseline.path is not configured")
	}

	var entries []baseline.Entry
	for _, rep := range result.Raw {
		ordinals := make(map[string]int, len(rep.Diagnostics))
		for _, d := range rep.Diagnostics {
			ord := ordinals[d.Property]
			ordinals[d.Property]++
			entries = append(entries, baseline.Entry{
				Path:     fingerprintPath(rep.File),
				Property: d.Property,
				Ordinal:  ord,
			})
		}
	}

	run, err := store.Update(baselineProject, entries)
	if err != nil {
		return baseline.Run{}, errors.AddContext(err, errors.CtxOperation, "update_baseline")
	}
	slog.Info("baseline updated", "run", run.ID, "findings", run.Findings)
	return run, nil
}

// baselineStore opens the configured store once and caches the handle.
// Without create, a store missing on disk is treated as absent so plain
// scans never create .proplint directories.
func (a *App) baselineStore(create bool) (*baseline.Store, error) {
	path := strings.TrimSpace(a.Config.Baseline.Path)
	if path == "" {
		return nil, nil
	}

	a.baselineMu.Lock()
	defer a.baselineMu.Unlock()
	if a.baseline != nil {
		return a.baseline, nil
	}
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, nil
		}
	}

	store, err := baseline.Open(path)
	if err != nil {
		return nil, err
	}
	a.baseline = store
	return store, nil
}

// WriteReport renders result in the configured format to the output
// path, or stdout when none is set.
func (a *App) WriteReport(result *Result) error {
	wd, _ := os.Getwd()
	opts := report.Options{
		ProjectName:         filepath.Base(wd),
		ProjectRoot:         wd,
		Version:             a.Version,
		GeneratedAt:         time.Now().UTC(),
		TableOfContents:     true,
		CollapsibleSections: true,
	}

	out, err := report.Render(a.Config.Output.Format, result.Data, opts)
	if err != nil {
		return err
	}

	path := strings.TrimSpace(a.Config.Output.Path)
	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return util.WriteFileWithDirs(path, out, 0o644)
}

func normalizeRoots(roots []string) []string {
	seen := make(map[string]bool, len(roots))
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

// fingerprintPath normalizes a report path for baseline fingerprints so
// entries survive restarts from the same project root.
func fingerprintPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(abs)
}

// excludedDir matches the directory against the patterns, also with a
// trailing separator so prefix patterns like **/node_modules/** prune
// the whole subtree. The ./ variant anchors relative paths whose first
// segment would otherwise leave **/ nothing to consume.
func (a *App) excludedDir(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range a.excludes {
		if g.Match(slashed) || g.Match("./"+slashed) || g.Match(base) {
			return true
		}
		if g.Match(slashed+"/") || g.Match("./"+slashed+"/") {
			return true
		}
	}
	return false
}

func (a *App) excludedFile(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range a.excludes {
		if g.Match(slashed) || g.Match("./"+slashed) || g.Match(base) {
			return true
		}
	}
	return false
}
