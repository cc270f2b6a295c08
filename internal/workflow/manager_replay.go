package workflow

import (
	"context"
	"os"

	"shelver/internal/ingest"
	"shelver/internal/logging"
	"shelver/internal/services"
)

// ReplayFallbacks reclassifies every file the keyword fallback handled while
// the primary classifier was unavailable. Records are drained up front so a
// second call never replays the same file; files that no longer exist are
// skipped. It returns how many files were fed back through the pipeline.
func (m *Manager) ReplayFallbacks(ctx context.Context) int {
	records := m.orchestrator.Tracker().Drain()
	if len(records) == 0 {
		return 0
	}
	logger := logging.WithContext(ctx, m.logger)
	replayed := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		info, err := os.Stat(record.Path)
		if err != nil || !info.Mode().IsRegular() {
			logger.Debug("fallback replay skipped; file is gone", logging.String(logging.FieldFile, record.Path))
			continue
		}
		m.registry.Forget(record.Path)
		candidate := ingest.Candidate{Path: record.Path, ModTime: info.ModTime(), Size: info.Size()}
		if _, err := m.processCandidate(services.WithTrigger(ctx, "replay"), candidate); err != nil {
			logger.Debug("fallback replay failed", logging.String(logging.FieldFile, record.Path), logging.Error(err))
		}
		replayed++
	}
	logger.Info("fallback replay complete",
		logging.Int("records", len(records)),
		logging.Int("replayed", replayed),
		logging.String(logging.FieldEventType, "fallback_replayed"),
	)
	return replayed
}
