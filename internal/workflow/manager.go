package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shelver/internal/activity"
	"shelver/internal/classify"
	"shelver/internal/config"
	"shelver/internal/extract"
	"shelver/internal/ingest"
	"shelver/internal/logging"
	"shelver/internal/notifications"
	"shelver/internal/relocate"
	"shelver/internal/retry"
	"shelver/internal/rules"
	"shelver/internal/watcher"
)

// Manager coordinates the watcher, scanner, retry scheduler and per-file
// processing chain.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	watcher      *watcher.Watcher
	scanner      *ingest.Scanner
	registry     *ingest.Registry
	abandoned    *ingest.Registry // (path, modTime) already reported as abandoned
	retry        *retry.Scheduler
	rules        *rules.Store
	extractor    *extract.Extractor
	primary      classify.Classifier
	orchestrator *classify.Orchestrator
	relocator    *relocate.Relocator
	recorder     *activity.Recorder
	notifier     notifications.Service

	flight   singleflight.Group
	scanMu   sync.Mutex
	parallel int

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastScan time.Time
	lastFile string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	notifier   notifications.Service
	primary    classify.Classifier
	hasPrimary bool
	executor   extract.Executor
	probe      ingest.LockProbe
	now        func() time.Time
	parallel   int
}

// WithNotifier replaces the ntfy notifier built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(o *managerOptions) { o.notifier = notifier }
}

// WithPrimaryClassifier replaces the LLM classifier built from config. A nil
// classifier means keyword matching only.
func WithPrimaryClassifier(c classify.Classifier) ManagerOption {
	return func(o *managerOptions) {
		o.primary = c
		o.hasPrimary = true
	}
}

// WithExtractExecutor replaces the runner used for pdftotext and tesseract.
func WithExtractExecutor(exec extract.Executor) ManagerOption {
	return func(o *managerOptions) { o.executor = exec }
}

// WithLockProbe replaces the open-for-read probe used by the scanner.
func WithLockProbe(probe ingest.LockProbe) ManagerOption {
	return func(o *managerOptions) { o.probe = probe }
}

// WithClock injects the time source shared by every component.
func WithClock(now func() time.Time) ManagerOption {
	return func(o *managerOptions) { o.now = now }
}

// WithParallelism bounds how many files one scan processes at once.
func WithParallelism(n int) ManagerOption {
	return func(o *managerOptions) { o.parallel = n }
}

// NewManager wires the pipeline from cfg. store backs the activity log and
// stays owned by the caller.
func NewManager(cfg *config.Config, store activity.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if options.now == nil {
		options.now = time.Now
	}
	if options.notifier == nil {
		options.notifier = notifications.NewService(cfg)
	}
	if !options.hasPrimary {
		options.primary = newPrimaryClassifier(cfg, logger)
	}
	if options.parallel <= 0 {
		options.parallel = defaultParallelism
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		now:       options.now,
		notifier:  options.notifier,
		primary:   options.primary,
		parallel:  options.parallel,
		registry:  ingest.NewRegistry(),
		abandoned: ingest.NewRegistry(),
	}
	m.buildComponents(store, logger, options)
	return m
}

// Registry exposes the processed-file registry.
func (m *Manager) Registry() *ingest.Registry { return m.registry }

// Recorder exposes the activity recorder for undo and listing.
func (m *Manager) Recorder() *activity.Recorder { return m.recorder }

// Rules exposes the rule store.
func (m *Manager) Rules() *rules.Store { return m.rules }

// Orchestrator exposes the classification orchestrator.
func (m *Manager) Orchestrator() *classify.Orchestrator { return m.orchestrator }

// ReviewDir returns the review holding folder.
func (m *Manager) ReviewDir() string { return m.relocator.ReviewDir() }

// PendingFiles lists files waiting in the retry queue, soonest first.
func (m *Manager) PendingFiles() []retry.PendingFile { return m.retry.Snapshot() }
