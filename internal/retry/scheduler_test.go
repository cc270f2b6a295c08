package retry_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"shelver/internal/logging"
	"shelver/internal/retry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDelayDoublesUpToCap(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
		{12, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := retry.Delay(5*time.Second, 60*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("Delay(attempt=%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestEnqueueSchedulesBackoffAndDropsAtCap(t *testing.T) {
	clk := &clock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	var exhausted []retry.PendingFile
	s := retry.New(retry.Options{
		Now: clk.Now,
		OnExhausted: func(_ context.Context, file retry.PendingFile) {
			exhausted = append(exhausted, file)
		},
	}, nil, logging.NewNop())

	path := "/inbox/locked.pdf"
	wantDelays := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}
	for i, delay := range wantDelays {
		attempts, ok := s.Enqueue(path)
		if !ok || attempts != i+1 {
			t.Fatalf("enqueue %d = (%d, %v), want (%d, true)", i+1, attempts, ok, i+1)
		}
		file, found := s.Get(path)
		if !found {
			t.Fatalf("file not pending after enqueue %d", i+1)
		}
		if got := file.NextRetry.Sub(clk.Now()); got != delay {
			t.Fatalf("delay after attempt %d = %s, want %s", i+1, got, delay)
		}
	}

	attempts, ok := s.Enqueue(path)
	if ok || attempts != 5 {
		t.Fatalf("fifth enqueue = (%d, %v), want (5, false)", attempts, ok)
	}
	if s.Pending(path) {
		t.Fatal("file still pending after reaching the cap")
	}
	if len(exhausted) != 1 || exhausted[0].Path != path || exhausted[0].Attempts != 5 {
		t.Fatalf("exhausted = %+v", exhausted)
	}
}

func TestTickRetriesDueFilesOnly(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	due := touch(t, dir, "due.pdf")
	later := touch(t, dir, "later.pdf")

	var attempted []string
	s := retry.New(retry.Options{Now: clk.Now}, func(_ context.Context, path string) bool {
		attempted = append(attempted, path)
		return true
	}, logging.NewNop())

	s.Enqueue(due)
	clk.Advance(3 * time.Second)
	s.Enqueue(later)
	clk.Advance(3 * time.Second)

	s.Tick(context.Background())
	if len(attempted) != 1 || attempted[0] != due {
		t.Fatalf("attempted = %v, want only %s", attempted, due)
	}
	if s.Pending(due) {
		t.Fatal("successful retry should remove the file")
	}
	if !s.Pending(later) {
		t.Fatal("file that is not yet due should stay pending")
	}
}

func TestTickReenqueuesFailedAttempt(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	path := touch(t, dir, "busy.docx")

	s := retry.New(retry.Options{Now: clk.Now}, func(context.Context, string) bool { return false }, logging.NewNop())
	s.Enqueue(path)
	clk.Advance(5 * time.Second)
	s.Tick(context.Background())

	file, ok := s.Get(path)
	if !ok {
		t.Fatal("failed retry should keep the file pending")
	}
	if file.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", file.Attempts)
	}
	if got := file.NextRetry.Sub(clk.Now()); got != 10*time.Second {
		t.Fatalf("next delay = %s, want 10s", got)
	}
}

func TestTickDropsVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	clk := &clock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	path := touch(t, dir, "gone.txt")

	called := false
	s := retry.New(retry.Options{Now: clk.Now}, func(context.Context, string) bool {
		called = true
		return false
	}, logging.NewNop())
	s.Enqueue(path)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	clk.Advance(time.Minute)
	s.Tick(context.Background())

	if called {
		t.Fatal("attempt should not run for a missing file")
	}
	if s.Len() != 0 {
		t.Fatalf("pending = %d, want 0", s.Len())
	}
}

func TestSnapshotOrdersByNextRetry(t *testing.T) {
	clk := &clock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	s := retry.New(retry.Options{Now: clk.Now}, nil, logging.NewNop())
	s.Enqueue("/inbox/b")
	s.Enqueue("/inbox/b")
	s.Enqueue("/inbox/a")

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Path != "/inbox/a" || snap[1].Path != "/inbox/b" {
		t.Fatalf("snapshot order = %+v", snap)
	}
}

func TestStartStopRunsLoop(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, dir, "report.pdf")

	attempted := make(chan string, 1)
	s := retry.New(retry.Options{
		BaseDelay:    time.Millisecond,
		MaxDelay:     time.Millisecond,
		TickInterval: 5 * time.Millisecond,
	}, func(_ context.Context, p string) bool {
		select {
		case attempted <- p:
		default:
		}
		return true
	}, logging.NewNop())

	s.Enqueue(path)
	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	select {
	case got := <-attempted:
		if got != path {
			t.Fatalf("attempted %s, want %s", got, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick loop never retried the file")
	}
	s.Stop()
	s.Stop()
}
