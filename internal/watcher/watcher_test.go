package watcher_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.uber.org/goleak"

	"shelver/internal/logging"
	"shelver/internal/services"
	"shelver/internal/watcher"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const debounce = 100 * time.Millisecond

func waitSignal(t *testing.T, w *watcher.Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Signals():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestBurstCoalescesIntoOneSignal(t *testing.T) {
	dir := t.TempDir()
	w := watcher.New(dir, debounce, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "file-"+strconv.Itoa(i)+".txt")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(debounce / 5)
	}

	if !waitSignal(t, w, 2*time.Second) {
		t.Fatal("expected a signal after the burst")
	}
	if waitSignal(t, w, 3*debounce) {
		t.Fatal("expected the burst to produce exactly one signal")
	}
}

func TestSignalWaitsForQuietPeriod(t *testing.T) {
	dir := t.TempDir()
	w := watcher.New(dir, 300*time.Millisecond, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if waitSignal(t, w, 100*time.Millisecond) {
		t.Fatal("signal fired before the debounce elapsed")
	}
	if !waitSignal(t, w, 2*time.Second) {
		t.Fatal("expected signal after debounce")
	}
}

func TestStartMissingDirectoryIsSetupError(t *testing.T) {
	w := watcher.New(filepath.Join(t.TempDir(), "missing"), debounce, logging.NewNop())
	err := w.Start(context.Background())
	if !errors.Is(err, services.ErrSetup) {
		t.Fatalf("expected ErrSetup, got %v", err)
	}
	if w.Running() {
		t.Fatal("watcher should not be running after setup failure")
	}
	w.Stop()
}

func TestStopIsIdempotentAndRestartable(t *testing.T) {
	dir := t.TempDir()
	w := watcher.New(dir, debounce, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
	if w.Running() {
		t.Fatal("expected watcher stopped")
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer w.Stop()
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitSignal(t, w, 2*time.Second) {
		t.Fatal("expected signal after restart")
	}
}

func TestStopCancelsPendingDebounce(t *testing.T) {
	dir := t.TempDir()
	w := watcher.New(dir, 300*time.Millisecond, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "c.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	if waitSignal(t, w, 600*time.Millisecond) {
		t.Fatal("expected no signal after stop")
	}
}
