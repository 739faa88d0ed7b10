// # cmd/proplint/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"proplint/internal/app"
	"proplint/internal/config"
	"proplint/internal/observability"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

var (
	configPath     = flag.String("config", "", "Path to config file (default: discover proplint.toml upward)")
	format         = flag.String("format", "", "Report format: text, sarif, or markdown")
	outputPath     = flag.String("output", "", "Report destination (default: stdout)")
	propsOnlySetup = flag.Bool("props-only-setup", true, "Restrict the setup props argument to declared props")
	jobs           = flag.Int("jobs", 0, "Parallel analysis workers (0 = number of CPUs)")
	watch          = flag.Bool("watch", false, "Watch the scan roots and re-analyze on change")
	tui            = flag.Bool("tui", false, "Interactive terminal UI (implies --watch)")
	metricsListen  = flag.String("metrics-listen", "", "Address for the /metrics and /health endpoint")
	baselineDB     = flag.String("baseline-db", "", "Path to the baseline database")
	updateBaseline = flag.Bool("update-baseline", false, "Record current findings as the accepted baseline")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	version        = flag.Bool("version", false, "Print version and exit")

	ignores stringList
)

const VERSION = "1.0.0"

func main() {
	flag.Var(&ignores, "ignore", "Ignore pattern (name or /regex/), repeatable; extends config ignores")
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if *version {
		fmt.Printf("proplint v%s\n", VERSION)
		return 0
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *tui {
		// In TUI mode, keep logs off the terminal.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 2
	}
	if err := applyFlags(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Telemetry.OTLPEndpoint, VERSION)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 2
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 2
	}
	application.Version = VERSION
	defer application.Close()

	if cfg.Telemetry.MetricsListen != "" {
		server := observability.NewServer(cfg.Telemetry.MetricsListen, app.NewHealthService(application))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 2
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				slog.Warn("observability server shutdown failed", "error", err)
			}
		}()
	}

	result, err := application.RunScan(ctx)
	if err != nil {
		slog.Error("scan failed", "error", err)
		return 2
	}

	if *updateBaseline {
		baselineRun, err := application.UpdateBaseline(result)
		if err != nil {
			slog.Error("failed to update baseline", "error", err)
			return 2
		}
		fmt.Printf("Baseline updated: %d findings accepted (run %s).\n", baselineRun.Findings, baselineRun.ID)
		return 0
	}

	watchMode := *watch || *tui
	if !watchMode {
		if err := application.WriteReport(result); err != nil {
			slog.Error("failed to write report", "error", err)
			return 2
		}
		if result.Data.FindingCount() > 0 {
			return 1
		}
		return 0
	}

	// Watch mode
	if !*tui {
		if err := application.WriteReport(result); err != nil {
			slog.Error("failed to write report", "error", err)
			return 2
		}
	}

	if err := application.StartWatch(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 2
	}

	if *tui {
		if err := runUI(ctx, application, result); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 2
		}
		return 0
	}

	<-ctx.Done()
	return 0
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if found := config.Discover(wd); found != "" {
		return config.Load(found)
	}
	return config.Default(), nil
}

func applyFlags(cfg *config.Config) error {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if args := flag.Args(); len(args) > 0 {
		cfg.Scan.Roots = args
	}
	if set["format"] {
		switch f := strings.ToLower(strings.TrimSpace(*format)); f {
		case "text", "sarif", "markdown":
			cfg.Output.Format = f
		default:
			return fmt.Errorf("--format must be one of: text, sarif, markdown")
		}
	}
	if set["output"] {
		cfg.Output.Path = *outputPath
	}
	if set["jobs"] {
		cfg.Scan.Jobs = *jobs
	}
	if set["baseline-db"] {
		cfg.Baseline.Path = *baselineDB
	}
	if set["metrics-listen"] {
		cfg.Telemetry.MetricsListen = *metricsListen
	}
	if set["props-only-setup"] {
		v := *propsOnlySetup
		cfg.Rule.PropsOnlySetup = &v
	}
	if len(ignores) > 0 {
		cfg.Rule.Ignores = append(cfg.Rule.Ignores, ignores...)
	}
	return nil
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "proplint", "proplint.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "proplint", "proplint.log")
	}

	return "proplint.log"
}
