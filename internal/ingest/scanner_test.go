package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shelver/internal/ingest"
	"shelver/internal/logging"
	"shelver/internal/services"
	"shelver/internal/testsupport"
)

type fakeDeferrer struct {
	attempts map[string]int
	removed  []string
}

func newFakeDeferrer() *fakeDeferrer {
	return &fakeDeferrer{attempts: make(map[string]int)}
}

func (f *fakeDeferrer) Pending(path string) bool {
	_, ok := f.attempts[path]
	return ok
}

func (f *fakeDeferrer) Enqueue(path string) (int, bool) {
	f.attempts[path]++
	return f.attempts[path], true
}

func (f *fakeDeferrer) Remove(path string) {
	delete(f.attempts, path)
	f.removed = append(f.removed, path)
}

type fakeReporter struct {
	whitelisted []string
	retrying    []string
}

func (f *fakeReporter) Whitelisted(_ context.Context, c ingest.Candidate) {
	f.whitelisted = append(f.whitelisted, c.Name())
}

func (f *fakeReporter) Retrying(_ context.Context, c ingest.Candidate, _ int, _ error) {
	f.retrying = append(f.retrying, c.Name())
}

type fixture struct {
	dir      string
	now      time.Time
	registry *ingest.Registry
	deferrer *fakeDeferrer
	reporter *fakeReporter
	scanner  *ingest.Scanner
	locked   map[string]bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir:      t.TempDir(),
		now:      time.Now(),
		registry: ingest.NewRegistry(),
		deferrer: newFakeDeferrer(),
		reporter: &fakeReporter{},
		locked:   make(map[string]bool),
	}
	f.scanner = ingest.NewScanner(ingest.Options{
		Dir:       f.dir,
		MinAge:    2 * time.Second,
		Ignore:    []string{".part", ".crdownload"},
		Whitelist: []string{".dmg"},
		Probe: func(path string) error {
			if f.locked[filepath.Base(path)] {
				return ingest.ErrLocked
			}
			return nil
		},
		Now: func() time.Time { return f.now },
	}, f.registry, f.deferrer, f.reporter, logging.NewNop())
	return f
}

func (f *fixture) write(t *testing.T, name string, age time.Duration) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(f.dir, name), name, f.now.Add(-age))
}

func names(cands []ingest.Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Name())
	}
	return out
}

func TestScanAppliesFilterOrder(t *testing.T) {
	f := newFixture(t)
	if err := os.Mkdir(filepath.Join(f.dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	f.write(t, "movie.part", time.Hour)
	f.write(t, "installer.dmg", time.Hour)
	young := f.write(t, "young.pdf", 500*time.Millisecond)
	done := f.write(t, "done.pdf", time.Hour)
	locked := f.write(t, "locked.pdf", time.Hour)
	f.write(t, "ready.pdf", time.Hour)
	f.locked["locked.pdf"] = true

	info, err := os.Stat(done)
	if err != nil {
		t.Fatal(err)
	}
	f.registry.Claim(done, info.ModTime())

	ready, err := f.scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if diff := cmp.Diff([]string{"ready.pdf"}, names(ready)); diff != "" {
		t.Fatalf("ready mismatch (-want +got):\n%s", diff)
	}
	if !f.deferrer.Pending(young) || !f.deferrer.Pending(locked) {
		t.Fatalf("expected young and locked files deferred, got %v", f.deferrer.attempts)
	}
	if len(f.deferrer.attempts) != 2 {
		t.Fatalf("expected exactly two deferrals, got %v", f.deferrer.attempts)
	}
	if diff := cmp.Diff([]string{"installer.dmg"}, f.reporter.whitelisted); diff != "" {
		t.Fatalf("whitelist reports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"locked.pdf"}, f.reporter.retrying); diff != "" {
		t.Fatalf("retrying reports mismatch (-want +got):\n%s", diff)
	}
}

func TestScanIsSafeToRepeat(t *testing.T) {
	f := newFixture(t)
	f.write(t, "installer.dmg", time.Hour)
	locked := f.write(t, "locked.pdf", time.Hour)
	f.locked["locked.pdf"] = true

	for i := 0; i < 3; i++ {
		if _, err := f.scanner.Scan(context.Background()); err != nil {
			t.Fatalf("Scan %d: %v", i, err)
		}
	}
	if len(f.reporter.whitelisted) != 1 {
		t.Fatalf("expected one whitelisted report, got %v", f.reporter.whitelisted)
	}
	if len(f.reporter.retrying) != 1 {
		t.Fatalf("expected one retrying report, got %v", f.reporter.retrying)
	}
	if f.deferrer.attempts[locked] != 1 {
		t.Fatalf("repeat scans must not bump a tracked file, got %d", f.deferrer.attempts[locked])
	}
	if _, err := os.Stat(filepath.Join(f.dir, "installer.dmg")); err != nil {
		t.Fatalf("whitelisted file must stay in place: %v", err)
	}
}

func TestScanRemovesReadyFilesFromDeferrer(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "slow.pdf", time.Second)
	if _, err := f.scanner.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !f.deferrer.Pending(path) {
		t.Fatal("expected young file deferred")
	}

	f.now = f.now.Add(5 * time.Second)
	ready, err := f.scanner.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"slow.pdf"}, names(ready)); diff != "" {
		t.Fatalf("ready mismatch (-want +got):\n%s", diff)
	}
	if f.deferrer.Pending(path) {
		t.Fatal("ready file should leave the deferrer")
	}
}

func TestEvaluateDecisions(t *testing.T) {
	f := newFixture(t)
	f.locked["held.pdf"] = true
	tests := []struct {
		name string
		age  time.Duration
		want ingest.Decision
	}{
		{"notes.crdownload", time.Hour, ingest.DecisionIgnored},
		{"disk.DMG", time.Hour, ingest.DecisionWhitelisted},
		{"fresh.txt", time.Second, ingest.DecisionTooYoung},
		{"held.pdf", time.Hour, ingest.DecisionLocked},
		{"ok.pdf", time.Hour, ingest.DecisionReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := f.write(t, tt.name, tt.age)
			got, _, _ := f.scanner.Evaluate(path)
			if got != tt.want {
				t.Fatalf("decision for %s: got %s want %s", tt.name, got, tt.want)
			}
		})
	}

	if got, _, _ := f.scanner.Evaluate(filepath.Join(f.dir, "gone.pdf")); got != ingest.DecisionMissing {
		t.Fatalf("expected missing, got %s", got)
	}
}

func TestRecheckReportsWhitelistOnce(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "tool.dmg", time.Hour)
	for i := 0; i < 2; i++ {
		_, decision, _ := f.scanner.Recheck(context.Background(), path)
		if decision != ingest.DecisionWhitelisted {
			t.Fatalf("expected whitelisted, got %s", decision)
		}
	}
	if len(f.reporter.whitelisted) != 1 {
		t.Fatalf("expected one report, got %v", f.reporter.whitelisted)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	scanner := ingest.NewScanner(ingest.Options{Dir: filepath.Join(t.TempDir(), "nope")}, nil, nil, nil, nil)
	_, err := scanner.Scan(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProbeReadable(t *testing.T) {
	path := testsupport.WriteAged(t, filepath.Join(t.TempDir(), "plain.txt"), "x")
	if err := ingest.ProbeReadable(path); err != nil {
		t.Fatalf("expected readable file, got %v", err)
	}
	if err := ingest.ProbeReadable(path + ".missing"); !errors.Is(err, ingest.ErrLocked) {
		t.Fatalf("expected ErrLocked for unreadable path, got %v", err)
	}
}
