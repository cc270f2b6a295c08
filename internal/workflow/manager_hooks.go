package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"shelver/internal/activity"
	"shelver/internal/ingest"
	"shelver/internal/logging"
	"shelver/internal/metrics"
	"shelver/internal/notifications"
	"shelver/internal/relocate"
	"shelver/internal/retry"
	"shelver/internal/services"
)

// scanReporter turns scanner observations into activity entries.
type scanReporter struct {
	m *Manager
}

func (r scanReporter) Whitelisted(ctx context.Context, c ingest.Candidate) {
	_, _ = r.m.recorder.Record(ctx, activity.Entry{
		Action:     activity.ActionWhitelisted,
		Status:     activity.StatusInfo,
		SourcePath: c.Path,
		Details:    "extension is whitelisted; left in place",
	})
}

func (r scanReporter) Retrying(ctx context.Context, c ingest.Candidate, attempts int, cause error) {
	if r.m.abandoned.Seen(c.Path, c.ModTime) {
		return
	}
	details := fmt.Sprintf("file is in use; retry %d scheduled", attempts)
	if cause != nil {
		details = fmt.Sprintf("%s (%v)", details, cause)
	}
	_, _ = r.m.recorder.Record(ctx, activity.Entry{
		Action:     activity.ActionRetrying,
		Status:     activity.StatusInfo,
		SourcePath: c.Path,
		Details:    details,
	})
}

// onRetryExhausted reports an abandoned file once per modification time. A
// file that stays locked is picked up again by later scans; those cycles are
// logged by the scheduler but add no activity entries or notifications.
func (m *Manager) onRetryExhausted(ctx context.Context, file retry.PendingFile) {
	ctx = services.WithFile(ctx, file.Path)
	var modTime time.Time
	if info, err := os.Stat(file.Path); err == nil {
		modTime = info.ModTime()
	}
	if !m.abandoned.Claim(file.Path, modTime) {
		m.logger.Debug("file still locked; abandonment already reported",
			logging.String(logging.FieldFile, file.Path),
			logging.Int("attempts", file.Attempts),
		)
		return
	}
	metrics.FilesProcessed.WithLabelValues(metrics.OutcomeAbandoned).Inc()
	_, _ = m.recorder.Record(ctx, activity.Entry{
		Action:     activity.ActionAbandoned,
		Status:     activity.StatusWarning,
		SourcePath: file.Path,
		Details:    fmt.Sprintf("still not readable after %d attempts; left in place", file.Attempts),
	})
	m.publish(ctx, notifications.EventRetryExhausted, notifications.Payload{
		"path":     file.Path,
		"attempts": file.Attempts,
	})
}

// claimingRestorer marks an undone file as handled so the next scan leaves it
// in the watch folder, including after a restart emptied the registry.
type claimingRestorer struct {
	relocator *relocate.Relocator
	registry  *ingest.Registry
}

func (c claimingRestorer) Restore(ctx context.Context, from, to string) error {
	info, err := os.Stat(from)
	if err != nil {
		return c.relocator.Restore(ctx, from, to)
	}
	// Claim before the move so a scan racing the rename sees it as handled.
	c.registry.Claim(to, info.ModTime())
	if err := c.relocator.Restore(ctx, from, to); err != nil {
		c.registry.Forget(to)
		return err
	}
	if restored, err := os.Stat(to); err == nil {
		c.registry.Claim(to, restored.ModTime())
	}
	return nil
}
