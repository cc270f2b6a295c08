package workflow

import (
	"context"

	"shelver/internal/logging"
	"shelver/internal/preflight"
)

// runPreflightChecks logs the readiness of directories, rules, extraction
// tools and the classifier endpoint. Failures are warnings only.
func (m *Manager) runPreflightChecks(ctx context.Context) {
	logger := logging.WithContext(ctx, m.logger)
	for _, r := range preflight.RunAll(ctx, m.cfg) {
		if r.Passed {
			logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue; shelver keeps running"),
			logging.String(logging.FieldImpact, "affected files may land in review or fail to move"),
		)
	}
	for _, status := range preflight.CheckSystemDeps(m.cfg) {
		if status.Available {
			continue
		}
		logging.WarnWithContext(logger, "extraction tool unavailable", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install "+status.Command+" or set its path under [extraction]"),
			logging.String(logging.FieldImpact, "these files are classified by name only"),
		)
	}
}
