package retry

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"shelver/internal/logging"
	"shelver/internal/metrics"
	"shelver/internal/services"
)

const (
	DefaultBaseDelay    = 5 * time.Second
	DefaultMaxDelay     = 60 * time.Second
	DefaultMaxAttempts  = 5
	DefaultTickInterval = 2 * time.Second
)

// PendingFile is the retry state of one file.
type PendingFile struct {
	Path        string    `json:"path"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
	NextRetry   time.Time `json:"next_retry"`
}

// AttemptFunc re-checks a due file. Returning true removes it from the queue;
// false re-enqueues it with the next delay.
type AttemptFunc func(ctx context.Context, path string) bool

// ExhaustedFunc is told about files dropped at the attempt cap.
type ExhaustedFunc func(ctx context.Context, file PendingFile)

// Options configures a Scheduler. Zero values take the package defaults.
type Options struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	TickInterval time.Duration
	Now          func() time.Time
	OnExhausted  ExhaustedFunc
}

// Scheduler owns the pending set.
type Scheduler struct {
	opts    Options
	attempt AttemptFunc
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*PendingFile

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New constructs a scheduler. attempt must not call back into the scheduler's
// Enqueue for the path it was handed.
func New(opts Options, attempt AttemptFunc, logger *slog.Logger) *Scheduler {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		opts:    opts,
		attempt: attempt,
		logger:  logging.NewComponentLogger(logger, "retry"),
		pending: make(map[string]*PendingFile),
	}
}

// Delay returns min(base * 2^(attempt-1), max) for attempt >= 1.
func Delay(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// Enqueue records a readiness failure for path. An untracked path starts at
// attempt 1; a tracked one has its counter incremented. When the new count
// reaches the cap the file is dropped, accepted is false and the exhausted
// hook runs.
func (s *Scheduler) Enqueue(path string) (attempts int, accepted bool) {
	return s.enqueue(context.Background(), path)
}

func (s *Scheduler) enqueue(ctx context.Context, path string) (int, bool) {
	now := s.opts.Now()

	s.mu.Lock()
	file, tracked := s.pending[path]
	if !tracked {
		file = &PendingFile{Path: path}
	}
	file.Attempts++
	file.LastAttempt = now
	if file.Attempts >= s.opts.MaxAttempts {
		dropped := *file
		delete(s.pending, path)
		size := len(s.pending)
		s.mu.Unlock()

		metrics.RetryPending.Set(float64(size))
		metrics.RetryAbandoned.Inc()
		logging.WarnWithContext(logging.WithContext(services.WithFile(ctx, path), s.logger),
			"retry attempts exhausted; file left in place", "retry_exhausted",
			logging.Int("attempts", dropped.Attempts),
			logging.String(logging.FieldErrorHint, "close the program holding the file, then run shelver rescan"),
			logging.String(logging.FieldImpact, "file will not be retried automatically until the next scan"),
		)
		if s.opts.OnExhausted != nil {
			s.opts.OnExhausted(ctx, dropped)
		}
		return dropped.Attempts, false
	}
	file.NextRetry = now.Add(Delay(s.opts.BaseDelay, s.opts.MaxDelay, file.Attempts))
	s.pending[path] = file
	attempts, next := file.Attempts, file.NextRetry
	size := len(s.pending)
	s.mu.Unlock()

	metrics.RetryPending.Set(float64(size))
	s.logger.Debug("retry scheduled",
		logging.String(logging.FieldFile, path),
		logging.Int("attempt", attempts),
		logging.Time("next_retry", next),
	)
	return attempts, true
}

// Pending reports whether path is tracked.
func (s *Scheduler) Pending(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[path]
	return ok
}

// Get returns a copy of the state for path.
func (s *Scheduler) Get(path string) (PendingFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.pending[path]
	if !ok {
		return PendingFile{}, false
	}
	return *file, true
}

// Remove stops tracking path.
func (s *Scheduler) Remove(path string) {
	s.mu.Lock()
	delete(s.pending, path)
	size := len(s.pending)
	s.mu.Unlock()
	metrics.RetryPending.Set(float64(size))
}

// Len returns the number of tracked files.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Snapshot returns copies of all pending files ordered by next retry time.
func (s *Scheduler) Snapshot() []PendingFile {
	s.mu.Lock()
	out := make([]PendingFile, 0, len(s.pending))
	for _, file := range s.pending {
		out = append(out, *file)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRetry.Equal(out[j].NextRetry) {
			return out[i].Path < out[j].Path
		}
		return out[i].NextRetry.Before(out[j].NextRetry)
	})
	return out
}

// Tick re-attempts every file whose next retry time has passed. Missing files
// are dropped without a log entry.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.opts.Now()
	var due []string
	s.mu.Lock()
	for path, file := range s.pending {
		if !file.NextRetry.After(now) {
			due = append(due, path)
		}
	}
	s.mu.Unlock()
	sort.Strings(due)

	for _, path := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			s.Remove(path)
			s.logger.Debug("pending file vanished", logging.String(logging.FieldFile, path))
			continue
		}
		if s.attempt != nil && s.attempt(services.WithTrigger(ctx, "retry"), path) {
			s.Remove(path)
			continue
		}
		s.enqueue(ctx, path)
	}
}

// Start launches the tick loop. Pending state from an earlier run is kept.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(loopCtx, s.done)
}

// Stop halts the tick loop without discarding pending files. Safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.runMu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
