package activity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shelver/internal/config"
	"shelver/internal/logging"
)

func sampleEntry(i int) Entry {
	return Entry{
		ID:              fmt.Sprintf("id-%03d", i),
		Timestamp:       time.Date(2026, 1, 15, 10, 0, i, 0, time.UTC),
		Filename:        fmt.Sprintf("file-%d.pdf", i),
		Action:          ActionMoved,
		Status:          StatusSuccess,
		RuleID:          "rule-1",
		SourcePath:      fmt.Sprintf("/inbox/file-%d.pdf", i),
		DestinationPath: fmt.Sprintf("/docs/file-%d.pdf", i),
	}
}

func storeBackends(t *testing.T) map[string]func(maxEntries int) Store {
	t.Helper()
	return map[string]func(int) Store{
		"json": func(maxEntries int) Store {
			return NewJSONStore(filepath.Join(t.TempDir(), "activity.json"), maxEntries, logging.NewNop())
		},
		"sqlite": func(maxEntries int) Store {
			store, err := OpenSQLite(filepath.Join(t.TempDir(), "activity.db"), maxEntries)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func TestStoreMissingIsEmpty(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := open(10).Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(entries) != 0 {
				t.Fatalf("entries = %+v", entries)
			}
		})
	}
}

func TestStoreAppendTrimsOldest(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(3)
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				if err := store.Append(ctx, sampleEntry(i)); err != nil {
					t.Fatalf("Append %d: %v", i, err)
				}
			}
			entries, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			want := []Entry{sampleEntry(3), sampleEntry(4), sampleEntry(5)}
			if diff := cmp.Diff(want, entries); diff != "" {
				t.Fatalf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONStoreRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.json")
	if err := os.WriteFile(path, []byte("[{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewJSONStore(path, 10, logging.NewNop())
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected parse error from Load")
	}
	if err := store.Append(context.Background(), sampleEntry(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := store.Load(context.Background())
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries = %+v, err = %v", entries, err)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("corrupt backup missing: %v", err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()

	cfg.Activity.Backend = "json"
	cfg.Paths.ActivityFile = filepath.Join(dir, "activity.json")
	store, err := Open(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open json: %v", err)
	}
	if _, ok := store.(*JSONStore); !ok {
		t.Fatalf("json backend = %T", store)
	}

	cfg.Activity.Backend = "sqlite"
	cfg.Paths.ActivityFile = filepath.Join(dir, "activity.db")
	store, err = Open(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("sqlite backend = %T", store)
	}

	cfg.Activity.Backend = "csv"
	if _, err := Open(&cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestEntryUndoable(t *testing.T) {
	base := sampleEntry(1)
	cases := map[string]struct {
		mutate func(*Entry)
		want   bool
	}{
		"moved":       {func(*Entry) {}, true},
		"reviewed":    {func(e *Entry) { e.Action = ActionReviewed }, true},
		"duplicate":   {func(e *Entry) { e.Action = ActionDuplicate }, false},
		"failed":      {func(e *Entry) { e.Status = StatusFailed }, false},
		"no source":   {func(e *Entry) { e.SourcePath = "" }, false},
		"no dest":     {func(e *Entry) { e.DestinationPath = " " }, false},
		"whitelisted": {func(e *Entry) { e.Action = ActionWhitelisted }, false},
	}
	for name, tc := range cases {
		e := base
		tc.mutate(&e)
		if got := e.Undoable(); got != tc.want {
			t.Errorf("%s: Undoable = %v, want %v", name, got, tc.want)
		}
	}
}
