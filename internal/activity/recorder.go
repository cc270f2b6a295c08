package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelver/internal/logging"
	"shelver/internal/services"
)

// Restorer moves a file back to where it came from.
type Restorer interface {
	Restore(ctx context.Context, from, to string) error
}

// UndoResult describes one undo attempt.
type UndoResult struct {
	// Entry is the record that was (or would have been) reversed.
	Entry Entry `json:"entry"`
	// Restored is true when the file is back at its source path.
	Restored bool `json:"restored"`
	// Reason explains a no-op or failure.
	Reason string `json:"reason,omitempty"`
}

// Recorder appends entries and performs undo.
type Recorder struct {
	store    Store
	restorer Restorer
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes undo against concurrent records so two undo calls never
	// pick the same entry.
	mu sync.Mutex
}

// NewRecorder wires a recorder. restorer may be nil when undo is not needed.
func NewRecorder(store Store, restorer Restorer, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:    store,
		restorer: restorer,
		logger:   logging.NewComponentLogger(logger, "activity"),
		now:      time.Now,
	}
}

// Record fills in id, timestamp and filename when missing and appends entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC()
	}
	if entry.Filename == "" && entry.SourcePath != "" {
		entry.Filename = filepath.Base(entry.SourcePath)
	}

	r.mu.Lock()
	err := r.store.Append(ctx, entry)
	r.mu.Unlock()
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "failed to record activity", "activity_write_failed",
			logging.Error(err),
			logging.String("action", string(entry.Action)),
			logging.String(logging.FieldErrorHint, "check permissions on the activity file"),
		)
		return entry, err
	}
	r.logger.Debug("activity recorded",
		logging.String("activity_id", entry.ID),
		logging.String("action", string(entry.Action)),
		logging.String("status", string(entry.Status)),
		logging.String(logging.FieldFile, entry.Filename),
	)
	return entry, nil
}

// Entries returns up to limit entries, newest first. limit <= 0 returns all.
func (r *Recorder) Entries(ctx context.Context, limit int) ([]Entry, error) {
	entries, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LastUndoable returns the entry UndoLast would reverse.
func (r *Recorder) LastUndoable(ctx context.Context) (Entry, bool, error) {
	entries, err := r.store.Load(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := lastUndoable(entries)
	return entry, ok, nil
}

func lastUndoable(entries []Entry) (Entry, bool) {
	undone := make(map[string]struct{})
	for _, e := range entries {
		if e.Action == ActionUndone && e.Status == StatusSuccess && e.RefID != "" {
			undone[e.RefID] = struct{}{}
		}
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.Undoable() {
			continue
		}
		if _, done := undone[e.ID]; done {
			continue
		}
		return e, true
	}
	return Entry{}, false
}

// UndoLast reverses the newest undoable entry. With nothing to undo it is a
// no-op. A missing destination file is logged and reported in the result;
// earlier entries are never touched.
func (r *Recorder) UndoLast(ctx context.Context) (UndoResult, error) {
	if r.restorer == nil {
		return UndoResult{}, errors.New("undo is not available")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.store.Load(ctx)
	if err != nil {
		return UndoResult{}, err
	}
	target, ok := lastUndoable(entries)
	if !ok {
		return UndoResult{Reason: "nothing to undo"}, nil
	}

	result := UndoResult{Entry: target}
	logger := logging.WithContext(services.WithFile(ctx, target.DestinationPath), r.logger)
	if err := r.restorer.Restore(ctx, target.DestinationPath, target.SourcePath); err != nil {
		result.Reason = err.Error()
		if errors.Is(err, services.ErrNotFound) {
			result.Reason = "file no longer at " + target.DestinationPath
		}
		logging.WarnWithContext(logger, "undo failed", "undo_failed",
			logging.String("activity_id", target.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.String(logging.FieldImpact, "file left where it is"),
		)
		r.appendLocked(ctx, Entry{
			Action:          ActionUndone,
			Status:          StatusFailed,
			Filename:        target.Filename,
			RuleID:          target.RuleID,
			Details:         result.Reason,
			SourcePath:      target.DestinationPath,
			DestinationPath: target.SourcePath,
			RefID:           target.ID,
		})
		return result, nil
	}

	result.Restored = true
	if err := r.appendLocked(ctx, Entry{
		Action:          ActionUndone,
		Status:          StatusSuccess,
		Filename:        target.Filename,
		RuleID:          target.RuleID,
		Details:         fmt.Sprintf("reverted %s", target.Action),
		SourcePath:      target.DestinationPath,
		DestinationPath: target.SourcePath,
		RefID:           target.ID,
	}); err != nil {
		return result, err
	}
	logger.Info("undo complete",
		logging.String("activity_id", target.ID),
		logging.String("restored_to", target.SourcePath),
	)
	return result, nil
}

func (r *Recorder) appendLocked(ctx context.Context, entry Entry) error {
	entry.ID = uuid.NewString()
	entry.Timestamp = r.now().UTC()
	if err := r.store.Append(ctx, entry); err != nil {
		logging.ErrorWithContext(r.logger, "failed to record undo", "activity_write_failed", logging.Error(err))
		return err
	}
	return nil
}
