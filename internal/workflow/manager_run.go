package workflow

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"shelver/internal/classify"
	"shelver/internal/logging"
	"shelver/internal/metrics"
	"shelver/internal/services"
)

// lifecycle is implemented by primary classifiers that run a readiness monitor.
type lifecycle interface {
	Start(ctx context.Context)
	Stop()
}

// readinessSource is implemented by primary classifiers that publish
// transitions to Ready.
type readinessSource interface {
	Readiness() *classify.Readiness
}

type readinessProbe interface {
	CheckNow(ctx context.Context) error
}

// Start attaches the watcher and launches the trigger loops. A watch
// directory that cannot be monitored is returned as services.ErrSetup and
// nothing is started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	if err := os.MkdirAll(m.cfg.Paths.WatchDir, 0o755); err != nil {
		return services.Wrap(services.ErrSetup, "workflow", "create watch dir", m.cfg.Paths.WatchDir, err)
	}
	m.runPreflightChecks(ctx)
	if err := m.watcher.Start(ctx); err != nil {
		m.setLastError(err)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.retry.Start(runCtx)
	var ready <-chan struct{}
	if src, ok := m.primary.(readinessSource); ok {
		ready = src.Readiness().Subscribe()
	}
	if lc, ok := m.primary.(lifecycle); ok {
		lc.Start(runCtx)
	}

	m.wg.Add(1)
	go m.run(runCtx, ready)

	m.logger.Info("monitoring started",
		logging.String("watch_dir", m.cfg.Paths.WatchDir),
		logging.Duration("rescan_interval", m.cfg.RescanInterval()),
		logging.Int("pending", m.retry.Len()),
		logging.String(logging.FieldEventType, "monitoring_started"),
	)
	return nil
}

// Stop halts the trigger loops and waits for in-flight scans. Pending retry
// state and fallback records are kept for the next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	m.watcher.Stop()
	m.retry.Stop()
	if lc, ok := m.primary.(lifecycle); ok {
		lc.Stop()
	}
	cancel()
	m.wg.Wait()
	m.logger.Info("monitoring stopped",
		logging.Int("pending", m.retry.Len()),
		logging.Int("fallback_records", m.orchestrator.Tracker().Len()),
		logging.String(logging.FieldEventType, "monitoring_stopped"),
	)
}

func (m *Manager) run(ctx context.Context, ready <-chan struct{}) {
	defer m.wg.Done()

	m.scanAndLog(services.WithTrigger(ctx, "startup"))

	var tick <-chan time.Time
	if interval := m.cfg.RescanInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	signals := m.watcher.Signals()

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			metrics.WatcherSignals.Inc()
			m.scanAndLog(services.WithTrigger(ctx, "watcher"))
		case <-tick:
			m.scanAndLog(services.WithTrigger(ctx, "rescan"))
		case <-ready:
			m.ReplayFallbacks(services.WithTrigger(ctx, "classifier_ready"))
		}
	}
}

func (m *Manager) scanAndLog(ctx context.Context) {
	if _, err := m.Rescan(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "scan failed", "scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.String(logging.FieldImpact, "new files wait for the next trigger"),
		)
	}
}

// Rescan lists the watch directory once and processes every ready file.
// It returns the number of files that reached a terminal outcome.
func (m *Manager) Rescan(ctx context.Context) (int, error) {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()

	candidates, err := m.scanner.Scan(ctx)
	m.mu.Lock()
	m.lastScan = m.now()
	m.mu.Unlock()
	if err != nil {
		m.setLastError(err)
		return 0, err
	}

	processed := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallel)
	for i, candidate := range candidates {
		g.Go(func() error {
			outcome, err := m.processCandidate(gctx, candidate)
			if err != nil {
				m.setLastError(err)
			}
			processed[i] = outcome.terminal()
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, ok := range processed {
		if ok {
			count++
		}
	}
	return count, ctx.Err()
}
