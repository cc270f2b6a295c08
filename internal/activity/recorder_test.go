package activity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shelver/internal/logging"
	"shelver/internal/services"
)

type fileRestorer struct {
	calls [][2]string
}

func (f *fileRestorer) Restore(_ context.Context, from, to string) error {
	f.calls = append(f.calls, [2]string{from, to})
	if _, err := os.Stat(from); err != nil {
		return services.Wrap(services.ErrNotFound, "undo", "stat", from, err)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(from, to)
}

func newRecorder(t *testing.T) (*Recorder, *fileRestorer) {
	t.Helper()
	restorer := &fileRestorer{}
	store := NewJSONStore(filepath.Join(t.TempDir(), "activity.json"), 100, logging.NewNop())
	return NewRecorder(store, restorer, logging.NewNop()), restorer
}

func TestRecordFillsDefaults(t *testing.T) {
	rec, _ := newRecorder(t)
	entry, err := rec.Record(context.Background(), Entry{
		Action:     ActionWhitelisted,
		Status:     StatusInfo,
		SourcePath: "/inbox/installer.dmg",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" || entry.Timestamp.IsZero() || entry.Filename != "installer.dmg" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestUndoLastRestoresAndIsSingleStep(t *testing.T) {
	rec, restorer := newRecorder(t)
	ctx := context.Background()
	root := t.TempDir()
	source := filepath.Join(root, "inbox", "invoice.pdf")
	dest := filepath.Join(root, "docs", "invoice.pdf")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(dest, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	older, _ := rec.Record(ctx, Entry{Action: ActionMoved, Status: StatusSuccess, SourcePath: "/a", DestinationPath: "/b"})
	moved, _ := rec.Record(ctx, Entry{Action: ActionMoved, Status: StatusSuccess, SourcePath: source, DestinationPath: dest})
	rec.Record(ctx, Entry{Action: ActionDuplicate, Status: StatusSuccess, SourcePath: "/c", DestinationPath: "/d"})

	res, err := rec.UndoLast(ctx)
	if err != nil {
		t.Fatalf("UndoLast: %v", err)
	}
	if !res.Restored || res.Entry.ID != moved.ID {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("file not restored: %v", err)
	}

	next, ok, err := rec.LastUndoable(ctx)
	if err != nil || !ok || next.ID != older.ID {
		t.Fatalf("next undoable = %+v, %v, %v", next, ok, err)
	}
	if len(restorer.calls) != 1 {
		t.Fatalf("restore calls = %v", restorer.calls)
	}

	entries, _ := rec.Entries(ctx, 1)
	if len(entries) != 1 || entries[0].Action != ActionUndone || entries[0].RefID != moved.ID {
		t.Fatalf("newest entry = %+v", entries)
	}
}

func TestUndoLastWithNothingUndoableIsNoop(t *testing.T) {
	rec, restorer := newRecorder(t)
	ctx := context.Background()
	rec.Record(ctx, Entry{Action: ActionWhitelisted, Status: StatusInfo, SourcePath: "/inbox/a.dmg"})

	res, err := rec.UndoLast(ctx)
	if err != nil {
		t.Fatalf("UndoLast: %v", err)
	}
	if res.Restored || res.Reason != "nothing to undo" || len(restorer.calls) != 0 {
		t.Fatalf("result = %+v, calls = %v", res, restorer.calls)
	}
	entries, _ := rec.Entries(ctx, 0)
	if len(entries) != 1 {
		t.Fatalf("no-op undo must not append; entries = %+v", entries)
	}
}

func TestUndoLastMissingDestinationDoesNotCascade(t *testing.T) {
	rec, restorer := newRecorder(t)
	ctx := context.Background()
	rec.Record(ctx, Entry{Action: ActionMoved, Status: StatusSuccess, SourcePath: "/x/older", DestinationPath: "/y/older"})
	gone, _ := rec.Record(ctx, Entry{Action: ActionMoved, Status: StatusSuccess, SourcePath: "/x/gone", DestinationPath: filepath.Join(t.TempDir(), "gone")})

	res, err := rec.UndoLast(ctx)
	if err != nil {
		t.Fatalf("UndoLast: %v", err)
	}
	if res.Restored || res.Entry.ID != gone.ID || res.Reason == "" {
		t.Fatalf("result = %+v", res)
	}
	if len(restorer.calls) != 1 {
		t.Fatalf("undo must not cascade; calls = %v", restorer.calls)
	}
	entries, _ := rec.Entries(ctx, 1)
	if entries[0].Action != ActionUndone || entries[0].Status != StatusFailed {
		t.Fatalf("newest entry = %+v", entries[0])
	}
}

func TestUndoWithoutRestorer(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "a.json"), 10, logging.NewNop())
	rec := NewRecorder(store, nil, logging.NewNop())
	if _, err := rec.UndoLast(context.Background()); err == nil || errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
