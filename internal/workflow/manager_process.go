package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"shelver/internal/activity"
	"shelver/internal/classify"
	"shelver/internal/ingest"
	"shelver/internal/logging"
	"shelver/internal/metrics"
	"shelver/internal/notifications"
	"shelver/internal/relocate"
	"shelver/internal/services"
)

// FileResult summarizes one pass of a file through the pipeline.
type FileResult struct {
	Path    string          `json:"path"`
	Skipped bool            `json:"skipped,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Mode    classify.Mode   `json:"mode,omitempty"`
	RuleID  string          `json:"rule_id,omitempty"`
	Entry   *activity.Entry `json:"entry,omitempty"`
}

func (r FileResult) terminal() bool {
	return r.Entry != nil && r.Entry.Terminal()
}

// Preview is the classification a file would get, without moving it.
type Preview struct {
	Path        string        `json:"path"`
	Text        string        `json:"text"`
	Mode        classify.Mode `json:"mode"`
	Matched     bool          `json:"matched"`
	RuleID      string        `json:"rule_id,omitempty"`
	RulePrompt  string        `json:"rule_prompt,omitempty"`
	Destination string        `json:"destination"`
}

// Reprocess forgets path in the registry and feeds it through the pipeline
// regardless of age or whitelist.
func (m *Manager) Reprocess(ctx context.Context, path string) (FileResult, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return FileResult{Path: path}, services.Wrap(services.ErrValidation, "reprocess", "resolve path", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileResult{Path: abs}, services.Wrap(services.ErrNotFound, "reprocess", "stat", abs, err)
		}
		return FileResult{Path: abs}, services.Wrap(services.ErrTransient, "reprocess", "stat", abs, err)
	}
	if !info.Mode().IsRegular() {
		return FileResult{Path: abs}, services.Wrap(services.ErrValidation, "reprocess", "stat", abs+" is not a regular file", nil)
	}
	m.registry.Forget(abs)
	m.abandoned.Forget(abs)
	m.retry.Remove(abs)
	candidate := ingest.Candidate{Path: abs, ModTime: info.ModTime(), Size: info.Size()}
	return m.processCandidate(services.WithTrigger(ctx, "manual"), candidate)
}

// Classify runs extraction and classification for path without moving it
// or recording activity.
func (m *Manager) Classify(ctx context.Context, path string) (Preview, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return Preview{Path: path}, services.Wrap(services.ErrValidation, "classify", "resolve path", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return Preview{Path: abs}, services.Wrap(services.ErrNotFound, "classify", "stat", abs, err)
	}
	ordered, err := m.rules.LoadEnabled()
	if err != nil {
		return Preview{Path: abs}, err
	}
	m.probePrimary(ctx)
	text := m.extractor.Combined(ctx, abs)
	decision := m.orchestrator.Classify(services.WithFile(ctx, abs), "", text, ordered)
	preview := Preview{
		Path:        abs,
		Text:        text,
		Mode:        decision.Mode,
		Matched:     decision.Matched,
		Destination: m.relocator.ReviewDir(),
	}
	if decision.Matched {
		preview.RuleID = decision.Rule.ID
		preview.RulePrompt = decision.Rule.Prompt
		preview.Destination = decision.Rule.Destination
	}
	return preview, nil
}

// probePrimary runs one readiness check when monitoring is off, so a
// one-shot preview does not sit out the ready timeout.
func (m *Manager) probePrimary(ctx context.Context) {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if running {
		return
	}
	if p, ok := m.primary.(readinessProbe); ok {
		_ = p.CheckNow(ctx)
	}
}

func (m *Manager) processCandidate(ctx context.Context, c ingest.Candidate) (FileResult, error) {
	v, err, _ := m.flight.Do(c.Path, func() (any, error) {
		return m.processOnce(ctx, c)
	})
	result, _ := v.(FileResult)
	return result, err
}

func (m *Manager) processOnce(ctx context.Context, c ingest.Candidate) (FileResult, error) {
	ctx = services.WithFile(ctx, c.Path)
	result := FileResult{Path: c.Path}
	if !m.registry.Claim(c.Path, c.ModTime) {
		result.Skipped = true
		result.Reason = "already processed"
		return result, nil
	}
	m.abandoned.Forget(c.Path)
	m.setLastFile(c.Path)

	ordered, err := m.rules.LoadEnabled()
	if err != nil {
		m.registry.Forget(c.Path)
		logging.ErrorWithContext(logging.WithContext(ctx, m.logger), "rules unavailable", "rules_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the rules file with shelver rules list"),
		)
		return result, err
	}

	text := m.extractor.Combined(services.WithStage(ctx, "extract"), c.Path)
	decision := m.orchestrator.Classify(services.WithStage(ctx, "classify"), c.Path, text, ordered)
	result.Mode = decision.Mode
	if decision.Matched {
		result.RuleID = decision.Rule.ID
	}
	if err := ctx.Err(); err != nil {
		// Shutdown interrupted classification; leave the file for the next run.
		m.registry.Forget(c.Path)
		m.orchestrator.Tracker().Forget(c.Path)
		result.Skipped = true
		result.Reason = "interrupted"
		return result, err
	}

	return m.relocate(services.WithStage(ctx, "relocate"), c.Path, decision, result)
}

func (m *Manager) relocate(ctx context.Context, path string, decision classify.Result, result FileResult) (FileResult, error) {
	var (
		moved relocate.Result
		err   error
	)
	switch {
	case decision.Matched:
		moved, err = m.relocator.Relocate(ctx, path, decision.Rule.Destination)
	case filepath.Dir(path) == filepath.Clean(m.relocator.ReviewDir()):
		moved = relocate.Result{Outcome: relocate.OutcomeInPlace, Source: path, Destination: path}
	default:
		moved, err = m.relocator.ToReview(ctx, path)
	}
	if err != nil {
		return m.handleRelocationFailure(ctx, path, decision, result, err)
	}

	logger := logging.WithContext(ctx, m.logger)
	if moved.Outcome == relocate.OutcomeInPlace {
		result.Reason = "already in destination"
		logger.Info("file already in destination", logging.Args(
			logging.DecisionAttrs("relocation", "in_place", string(decision.Mode))...)...)
		return result, nil
	}

	m.followFallback(path, decision, moved)
	entry := entryFor(moved, decision)
	recorded, recErr := m.recorder.Record(ctx, entry)
	result.Entry = &recorded
	metrics.FilesProcessed.WithLabelValues(string(moved.Outcome)).Inc()

	logger.Info("file processed",
		logging.String("outcome", string(moved.Outcome)),
		logging.String("destination", moved.Destination),
		logging.String("mode", string(decision.Mode)),
		logging.String("rule_id", decision.Rule.ID),
		logging.Bool("renamed", moved.Renamed),
		logging.String(logging.FieldEventType, "file_"+string(moved.Outcome)),
	)
	m.notifyOutcome(ctx, moved)
	return result, recErr
}

// followFallback keeps the fallback record pointing at the file's current
// location so a replay reclassifies it where it landed.
func (m *Manager) followFallback(src string, decision classify.Result, moved relocate.Result) {
	if !decision.Deferred {
		return
	}
	tracker := m.orchestrator.Tracker()
	tracker.Forget(src)
	if moved.Outcome == relocate.OutcomeMoved || moved.Outcome == relocate.OutcomeReviewed {
		tracker.Track(moved.Destination, m.now())
	}
}

func entryFor(moved relocate.Result, decision classify.Result) activity.Entry {
	entry := activity.Entry{
		Status:          activity.StatusSuccess,
		SourcePath:      moved.Source,
		DestinationPath: moved.Destination,
		RuleID:          decision.Rule.ID,
	}
	var details []string
	switch moved.Outcome {
	case relocate.OutcomeDuplicate:
		entry.Action = activity.ActionDuplicate
		details = append(details, "identical file already at destination; quarantined as "+moved.QuarantinePath)
	case relocate.OutcomeReviewed:
		entry.Action = activity.ActionReviewed
		if decision.Mode == classify.ModeNone {
			details = append(details, "no enabled rules")
		} else {
			details = append(details, "no rule matched")
		}
	default:
		entry.Action = activity.ActionMoved
		if moved.Renamed {
			details = append(details, "renamed to "+filepath.Base(moved.Destination))
		}
	}
	if decision.Mode == classify.ModeFallback {
		details = append(details, "keyword fallback")
	}
	if moved.SourceRemoveErr != nil {
		entry.Status = activity.StatusWarning
		details = append(details, fmt.Sprintf("source not removed: %v", moved.SourceRemoveErr))
	}
	entry.Details = strings.Join(details, "; ")
	return entry
}

func (m *Manager) handleRelocationFailure(ctx context.Context, path string, decision classify.Result, result FileResult, relErr error) (FileResult, error) {
	target := m.relocator.ReviewDir()
	if decision.Matched {
		target = decision.Rule.Destination
	}
	logging.ErrorWithContext(logging.WithContext(ctx, m.logger), "relocation failed; file left in place", "relocation_failed",
		logging.String("destination", target),
		logging.Error(relErr),
		logging.String(logging.FieldErrorHint, services.ErrorHint(relErr)),
	)
	m.setLastError(relErr)
	metrics.FilesProcessed.WithLabelValues(metrics.OutcomeFailed).Inc()

	recorded, recErr := m.recorder.Record(ctx, activity.Entry{
		Action:          activity.ActionFailed,
		Status:          activity.StatusFailed,
		SourcePath:      path,
		DestinationPath: target,
		RuleID:          decision.Rule.ID,
		Details:         relErr.Error(),
	})
	if recErr == nil {
		result.Entry = &recorded
	}
	m.publish(ctx, notifications.EventRelocationFailed, notifications.Payload{
		"path":        path,
		"destination": target,
		"error":       relErr,
	})
	return result, relErr
}

func (m *Manager) attemptPending(ctx context.Context, path string) bool {
	candidate, decision, _ := m.scanner.Recheck(ctx, path)
	switch {
	case decision == ingest.DecisionReady:
		if _, err := m.processCandidate(ctx, candidate); err != nil {
			m.logger.Debug("retry processing failed", logging.String(logging.FieldFile, path), logging.Error(err))
		}
		return true
	case decision.Deferred():
		return false
	default:
		return true
	}
}
