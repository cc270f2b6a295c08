package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shelver/internal/activity"
	"shelver/internal/config"
	"shelver/internal/deps"
	"shelver/internal/logging"
	"shelver/internal/notifications"
	"shelver/internal/preflight"
	"shelver/internal/retry"
	"shelver/internal/services"
	"shelver/internal/workflow"
)

// Daemon owns the instance lock and the monitoring lifecycle.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     activity.Store
	workflow  *workflow.Manager
	notifier  notifications.Service
	logPath   string
	sessionID string
	startedAt time.Time

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running   atomic.Bool
	mu        sync.Mutex
	closeOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	PID          int                    `json:"pid"`
	SessionID    string                 `json:"session_id,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	Workflow     workflow.StatusSummary `json:"workflow"`
	Dependencies []deps.Status          `json:"dependencies"`
	LockPath     string                 `json:"lock_path"`
	LogPath      string                 `json:"log_path,omitempty"`
	ActivityPath string                 `json:"activity_path"`
	RulesFile    string                 `json:"rules_file"`
}

// ReviewListing lists the files waiting in the review area.
type ReviewListing struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Option customises a Daemon.
type Option func(*Daemon)

// WithLogPath records the active log file for status output.
func WithLogPath(path string) Option {
	return func(d *Daemon) { d.logPath = path }
}

// WithSessionID tags the daemon with a run identifier.
func WithSessionID(id string) Option {
	return func(d *Daemon) { d.sessionID = id }
}

// WithNotifier overrides the notifier used by TestNotification.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) { d.notifier = n }
}

// New acquires the instance lock and prepares the HTTP API. The lock is held
// until Close, independent of whether monitoring is running.
func New(cfg *config.Config, store activity.Store, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, activity store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrSetup, "daemon", "create state dir", filepath.Dir(lockPath), err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "daemon", "acquire lock", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrSetup, "daemon", "acquire lock", "another shelver daemon instance is already running", nil)
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		workflow:  wf,
		lockPath:  lockPath,
		lock:      lock,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Serve starts the HTTP API when one is configured. The server stops when
// ctx is done or on Close.
func (d *Daemon) Serve(ctx context.Context) error {
	return d.api.start(ctx)
}

// Start launches folder monitoring.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("monitoring already running")
	}
	if err := d.workflow.Start(ctx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	d.running.Store(true)
	d.logger.Info("monitoring enabled",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_monitoring_started"))
	return nil
}

// Stop halts monitoring. The lock and pending state are kept.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.workflow.Stop()
	d.running.Store(false)
	d.logger.Info("monitoring disabled",
		logging.String(logging.FieldEventType, "daemon_monitoring_stopped"))
}

// Close stops monitoring, shuts the API down, and releases the lock and the
// activity store.
func (d *Daemon) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.Stop()
		d.api.stop()
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
				logging.Error(unlockErr),
				logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"))
		}
		err = d.store.Close()
	})
	return err
}

// Running reports whether monitoring is active.
func (d *Daemon) Running() bool { return d.running.Load() }

// LockPath returns the instance lock file.
func (d *Daemon) LockPath() string { return d.lockPath }

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SessionID:    d.sessionID,
		StartedAt:    d.startedAt,
		Workflow:     d.workflow.Status(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
		LockPath:     d.lockPath,
		LogPath:      d.logPath,
		ActivityPath: d.cfg.Paths.ActivityFile,
		RulesFile:    d.cfg.Paths.RulesFile,
	}
}

// Rescan runs one scan of the watch directory and returns the number of
// files that reached a terminal outcome.
func (d *Daemon) Rescan(ctx context.Context) (int, error) {
	return d.workflow.Rescan(services.WithTrigger(ctx, "manual"))
}

// Undo reverses the most recent undoable activity entry.
func (d *Daemon) Undo(ctx context.Context) (activity.UndoResult, error) {
	return d.workflow.Recorder().UndoLast(ctx)
}

// Activity returns up to limit entries, newest first. A non-positive limit
// returns everything retained.
func (d *Daemon) Activity(ctx context.Context, limit int) ([]activity.Entry, error) {
	return d.workflow.Recorder().Entries(ctx, limit)
}

// Pending returns the files currently deferred by the retry scheduler.
func (d *Daemon) Pending() []retry.PendingFile {
	return d.workflow.PendingFiles()
}

// Review lists the regular files in the review area.
func (d *Daemon) Review() (ReviewListing, error) {
	return ListReview(d.workflow.ReviewDir())
}

// Reprocess feeds a single file back through the pipeline.
func (d *Daemon) Reprocess(ctx context.Context, path string) (workflow.FileResult, error) {
	return d.workflow.Reprocess(services.WithTrigger(ctx, "reprocess"), path)
}

// TestNotification sends a test push notification.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	err := d.notifier.Publish(ctx, notifications.EventTest, notifications.Payload{
		"message": "shelver notifications are working",
	})
	if err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// ListReview returns the files directly inside dir, sorted by name. A missing
// directory is an empty listing.
func ListReview(dir string) (ReviewListing, error) {
	listing := ReviewListing{Dir: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return listing, nil
		}
		return listing, fmt.Errorf("read review dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		listing.Files = append(listing.Files, entry.Name())
	}
	sort.Strings(listing.Files)
	return listing, nil
}
