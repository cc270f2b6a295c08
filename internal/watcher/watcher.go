package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shelver/internal/logging"
	"shelver/internal/services"
)

// DefaultDebounce is the trailing quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors one directory, non-recursively.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	signals  chan struct{}

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New constructs a watcher for dir. Start must be called to begin monitoring.
func New(dir string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		signals:  make(chan struct{}, 1),
	}
}

// Signals delivers one value per debounced burst. The channel holds at most
// one undelivered signal; further bursts while it is full coalesce into it.
func (w *Watcher) Signals() <-chan struct{} {
	return w.signals
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Running reports whether the subscription is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start subscribes to change notifications. A directory that cannot be
// monitored is reported as services.ErrSetup and is not retried. Calling
// Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrSetup, "watcher", "create", "Unable to create filesystem watcher", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return services.Wrap(services.ErrSetup, "watcher", "subscribe", "Unable to monitor "+w.dir, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.fs = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	go w.loop(loopCtx, fsw, w.done)

	w.logger.Info("watching directory",
		logging.String("dir", w.dir),
		logging.Duration("debounce", w.debounce),
		logging.String(logging.FieldEventType, "watcher_started"),
	)
	return nil
}

// Stop cancels the subscription and any pending debounce timer. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel, done, fsw := w.cancel, w.done, w.fs
	w.running = false
	w.cancel = nil
	w.fs = nil
	w.mu.Unlock()

	cancel()
	<-done
	if err := fsw.Close(); err != nil {
		w.logger.Debug("close filesystem watcher", logging.Error(err))
	}
	w.logger.Info("stopped watching directory",
		logging.String("dir", w.dir),
		logging.String(logging.FieldEventType, "watcher_stopped"),
	)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Lost events still mean something changed.
				w.publish()
				continue
			}
			logging.WarnWithContext(w.logger, "filesystem watcher error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some changes may only be picked up by the periodic rescan"),
			)
		case <-fire:
			fire = nil
			w.publish()
		}
	}
}

func (w *Watcher) publish() {
	select {
	case w.signals <- struct{}{}:
	default:
	}
}
