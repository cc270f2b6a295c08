package workflow

import (
	"context"
	"errors"

	"shelver/internal/logging"
	"shelver/internal/notifications"
	"shelver/internal/relocate"
)

func (m *Manager) notifyOutcome(ctx context.Context, moved relocate.Result) {
	payload := notifications.Payload{
		"path":        moved.Source,
		"destination": moved.Destination,
	}
	switch moved.Outcome {
	case relocate.OutcomeMoved:
		m.publish(ctx, notifications.EventFileMoved, payload)
	case relocate.OutcomeReviewed:
		m.publish(ctx, notifications.EventFileReviewed, payload)
	case relocate.OutcomeDuplicate:
		payload["quarantine"] = moved.QuarantinePath
		m.publish(ctx, notifications.EventDuplicateQuarantined, payload)
	}
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
