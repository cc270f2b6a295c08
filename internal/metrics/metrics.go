// Package metrics declares the Prometheus collectors exported by the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for FilesProcessed.
const (
	OutcomeMoved     = "moved"
	OutcomeReviewed  = "reviewed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

// Mode labels for Classifications.
const (
	ModePrimary  = "primary"
	ModeFallback = "fallback"
	ModeNone     = "none"
)

var (
	// FilesProcessed counts terminal outcomes by kind.
	FilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelver_files_processed_total",
		Help: "Files that reached a terminal outcome, by outcome",
	}, []string{"outcome"})

	// Classifications counts classification decisions by the path that produced them.
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelver_classifications_total",
		Help: "Classification decisions by mode",
	}, []string{"mode"})

	// RetryPending tracks the size of the retry queue.
	RetryPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shelver_retry_pending",
		Help: "Files waiting in the retry queue",
	})

	// RetryAbandoned counts files dropped after exhausting their retries.
	RetryAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelver_retry_abandoned_total",
		Help: "Files dropped from the retry queue after reaching the attempt cap",
	})

	// RelocationSeconds tracks how long a physical move takes.
	RelocationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shelver_relocation_seconds",
		Help:    "Duration of relocation including duplicate hashing",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
	})

	// WatcherSignals counts debounced change signals consumed by the pipeline.
	WatcherSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelver_watcher_signals_total",
		Help: "Debounced directory change signals",
	})
)
