package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"shelver/internal/activity"
	"shelver/internal/classify"
	"shelver/internal/config"
	"shelver/internal/logging"
	"shelver/internal/notifications"
	"shelver/internal/rules"
	"shelver/internal/testsupport"
	"shelver/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubNotifier) Events() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Event(nil), s.events...)
}

// stubExecutor answers pdftotext and tesseract with fixed text.
type stubExecutor struct {
	text string
}

func (s stubExecutor) Run(context.Context, string, []string) ([]byte, error) {
	return []byte(s.text), nil
}

// stubPrimary is a controllable primary classifier.
type stubPrimary struct {
	readiness *classify.Readiness

	mu    sync.Mutex
	index int
	calls int
}

func newStubPrimary(index int) *stubPrimary {
	return &stubPrimary{readiness: classify.NewReadiness(), index: index}
}

func (s *stubPrimary) Readiness() *classify.Readiness { return s.readiness }

func (s *stubPrimary) Ready() bool { return s.readiness.Ready() }

func (s *stubPrimary) AwaitReady(ctx context.Context, timeout time.Duration) bool {
	return s.readiness.Await(ctx, timeout)
}

func (s *stubPrimary) Classify(_ context.Context, _ string, ordered []rules.Rule) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.index < 0 || s.index >= len(ordered) {
		return 0, false, nil
	}
	return s.index, true, nil
}

func (s *stubPrimary) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	cfg      *config.Config
	base     string
	store    activity.Store
	notifier *stubNotifier
	manager  *workflow.Manager
}

func newHarness(t *testing.T, opts ...workflow.ManagerOption) *harness {
	t.Helper()
	return newHarnessWithConfig(t, testsupport.NewConfig(t), opts...)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, opts ...workflow.ManagerOption) *harness {
	t.Helper()
	cfg.Ingest.DebounceMillis = 20
	store := activity.NewJSONStore(cfg.Paths.ActivityFile, cfg.Activity.MaxEntries, logging.NewNop())
	t.Cleanup(func() { _ = store.Close() })

	notifier := &stubNotifier{}
	all := append([]workflow.ManagerOption{
		workflow.WithNotifier(notifier),
		workflow.WithPrimaryClassifier(nil),
		workflow.WithExtractExecutor(stubExecutor{}),
	}, opts...)
	return &harness{
		cfg:      cfg,
		base:     testsupport.BaseDir(cfg),
		store:    store,
		notifier: notifier,
		manager:  workflow.NewManager(cfg, store, logging.NewNop(), all...),
	}
}

func (h *harness) addRule(t *testing.T, prompt, folder string) string {
	t.Helper()
	dest := filepath.Join(h.base, "docs", folder)
	if _, err := h.manager.Rules().Add(prompt, dest, nil); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	return dest
}

func (h *harness) inbox(name string) string {
	return filepath.Join(h.cfg.Paths.WatchDir, name)
}

func (h *harness) entries(t *testing.T) []activity.Entry {
	t.Helper()
	entries, err := h.store.Load(context.Background())
	if err != nil {
		t.Fatalf("load activity: %v", err)
	}
	return entries
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
