package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proplint_analysis_seconds",
		Help:    "Time spent analyzing a single file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proplint_scan_seconds",
		Help:    "End-to-end duration of a full scan.",
		Buckets: prometheus.DefBuckets,
	})

	FilesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proplint_files_scanned_total",
		Help: "Total number of files analyzed.",
	})

	FindingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proplint_findings_total",
		Help: "Total number of undefined-property findings reported.",
	})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proplint_parse_failures_total",
		Help: "Total number of files that could not be parsed at all.",
	})

	PartialAnalysesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proplint_partial_analyses_total",
		Help: "Total number of files analyzed with degraded coverage.",
	})

	BaselineSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proplint_baseline_suppressed_total",
		Help: "Total number of findings suppressed by the baseline.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proplint_watcher_events_total",
		Help: "Total number of file change batches processed in watch mode.",
	})
)
