package relocate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shelver/internal/logging"
	"shelver/internal/services"
)

var fixedNow = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

type recordingAccessor struct {
	begun []string
	ended int
	err   error
}

func (a *recordingAccessor) BeginAccess(path string) (*Handle, error) {
	a.begun = append(a.begun, path)
	if a.err != nil {
		return nil, a.err
	}
	return &Handle{Path: path}, nil
}

func (a *recordingAccessor) EndAccess(*Handle) { a.ended++ }

type fixture struct {
	root       string
	watch      string
	review     string
	quarantine string
	accessor   *recordingAccessor
	relocator  *Relocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:       root,
		watch:      filepath.Join(root, "inbox"),
		review:     filepath.Join(root, "review"),
		quarantine: filepath.Join(root, "quarantine"),
		accessor:   &recordingAccessor{},
	}
	if err := os.MkdirAll(f.watch, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f.relocator = New(Options{
		WatchRoot:     f.watch,
		ReviewDir:     f.review,
		QuarantineDir: f.quarantine,
		Accessor:      f.accessor,
		Now:           func() time.Time { return fixedNow },
	}, logging.NewNop())
	return f
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("%s should not exist (err=%v)", path, err)
	}
}

func TestRelocateMovesIntoNewFolder(t *testing.T) {
	f := newFixture(t)
	src := write(t, filepath.Join(f.watch, "invoice_march.pdf"), "invoice")
	dest := filepath.Join(f.root, "docs", "Invoices")

	res, err := f.relocator.Relocate(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	want := filepath.Join(dest, "invoice_march.pdf")
	if res.Outcome != OutcomeMoved || res.Destination != want || res.Renamed {
		t.Fatalf("result = %+v", res)
	}
	if read(t, want) != "invoice" {
		t.Fatal("content changed")
	}
	assertGone(t, src)
	if len(f.accessor.begun) != 1 || f.accessor.ended != 1 {
		t.Fatalf("accessor begun=%v ended=%d", f.accessor.begun, f.accessor.ended)
	}
}

func TestRelocateDuplicateGoesToQuarantine(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.root, "docs")
	existing := write(t, filepath.Join(dest, "report.pdf"), "same bytes")
	src := write(t, filepath.Join(f.watch, "report.pdf"), "same bytes")

	res, err := f.relocator.Relocate(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if res.Outcome != OutcomeDuplicate || res.Destination != existing {
		t.Fatalf("result = %+v", res)
	}
	wantQuarantine := filepath.Join(f.quarantine, "20260115T103000Z_report.pdf")
	if res.QuarantinePath != wantQuarantine {
		t.Fatalf("quarantine path = %s, want %s", res.QuarantinePath, wantQuarantine)
	}
	if read(t, wantQuarantine) != "same bytes" || read(t, existing) != "same bytes" {
		t.Fatal("content mismatch after dedup")
	}
	assertGone(t, src)
}

func TestRelocateRenamesOnCollision(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.root, "docs")
	for _, name := range []string{"name.ext", "name(1).ext", "name(2).ext", "name(3).ext"} {
		write(t, filepath.Join(dest, name), "other "+name)
	}
	src := write(t, filepath.Join(f.watch, "name.ext"), "new content")

	res, err := f.relocator.Relocate(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	want := filepath.Join(dest, "name(4).ext")
	if res.Destination != want || !res.Renamed || res.Outcome != OutcomeMoved {
		t.Fatalf("result = %+v", res)
	}
	if read(t, want) != "new content" || read(t, filepath.Join(dest, "name.ext")) != "other name.ext" {
		t.Fatal("unexpected contents after rename")
	}
}

func TestRelocateInsideWatchRootSkipsAccessor(t *testing.T) {
	f := newFixture(t)
	src := write(t, filepath.Join(f.watch, "a.txt"), "a")
	if _, err := f.relocator.Relocate(context.Background(), src, filepath.Join(f.watch, "sorted")); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if len(f.accessor.begun) != 0 {
		t.Fatalf("accessor used for in-root destination: %v", f.accessor.begun)
	}
}

func TestRelocateProceedsWhenAccessDenied(t *testing.T) {
	f := newFixture(t)
	f.accessor.err = errors.New("denied")
	src := write(t, filepath.Join(f.watch, "a.txt"), "a")
	res, err := f.relocator.Relocate(context.Background(), src, filepath.Join(f.root, "out"))
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if res.Outcome != OutcomeMoved || f.accessor.ended != 0 {
		t.Fatalf("result = %+v, ended = %d", res, f.accessor.ended)
	}
}

func TestRelocateAlreadyInPlace(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.root, "docs")
	src := write(t, filepath.Join(dest, "a.txt"), "a")
	res, err := f.relocator.Relocate(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if res.Outcome != OutcomeInPlace || read(t, src) != "a" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRelocateMissingSourceFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.relocator.Relocate(context.Background(), filepath.Join(f.watch, "ghost.txt"), filepath.Join(f.root, "docs"))
	if !errors.Is(err, services.ErrRelocation) {
		t.Fatalf("err = %v, want ErrRelocation", err)
	}
}

func TestToReviewAlwaysRenames(t *testing.T) {
	f := newFixture(t)
	write(t, filepath.Join(f.review, "scan.png"), "same")
	src := write(t, filepath.Join(f.watch, "scan.png"), "same")

	res, err := f.relocator.ToReview(context.Background(), src)
	if err != nil {
		t.Fatalf("ToReview: %v", err)
	}
	want := filepath.Join(f.review, "scan(1).png")
	if res.Outcome != OutcomeReviewed || res.Destination != want || !res.Renamed {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(f.quarantine); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("review must never quarantine")
	}
}

func TestReviewAndQuarantineOutsideRootTakeAccess(t *testing.T) {
	f := newFixture(t)
	src := write(t, filepath.Join(f.watch, "notes.txt"), "notes")
	if _, err := f.relocator.ToReview(context.Background(), src); err != nil {
		t.Fatalf("ToReview: %v", err)
	}
	if diff := cmp.Diff([]string{f.review}, f.accessor.begun); diff != "" || f.accessor.ended != 1 {
		t.Fatalf("review access (-want +got):\n%s\nended=%d", diff, f.accessor.ended)
	}

	dest := filepath.Join(f.root, "docs")
	write(t, filepath.Join(dest, "report.pdf"), "same bytes")
	dup := write(t, filepath.Join(f.watch, "report.pdf"), "same bytes")
	res, err := f.relocator.Relocate(context.Background(), dup, dest)
	if err != nil || res.Outcome != OutcomeDuplicate {
		t.Fatalf("Relocate = %+v, %v", res, err)
	}
	want := []string{f.review, dest, f.quarantine}
	if diff := cmp.Diff(want, f.accessor.begun); diff != "" || f.accessor.ended != 3 {
		t.Fatalf("quarantine access (-want +got):\n%s\nended=%d", diff, f.accessor.ended)
	}
}

func TestRestoreMovesBack(t *testing.T) {
	f := newFixture(t)
	moved := write(t, filepath.Join(f.root, "docs", "a.txt"), "a")
	original := filepath.Join(f.watch, "a.txt")

	if err := f.relocator.Restore(context.Background(), moved, original); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if read(t, original) != "a" {
		t.Fatal("restored content mismatch")
	}
	assertGone(t, moved)
}

func TestRestoreMissingSource(t *testing.T) {
	f := newFixture(t)
	err := f.relocator.Restore(context.Background(), filepath.Join(f.root, "gone.txt"), filepath.Join(f.watch, "gone.txt"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRestoreRefusesToOverwrite(t *testing.T) {
	f := newFixture(t)
	moved := write(t, filepath.Join(f.root, "docs", "a.txt"), "moved")
	original := write(t, filepath.Join(f.watch, "a.txt"), "newer")
	if err := f.relocator.Restore(context.Background(), moved, original); err == nil {
		t.Fatal("expected restore to refuse replacing an existing file")
	}
	if read(t, original) != "newer" || read(t, moved) != "moved" {
		t.Fatal("files changed after refused restore")
	}
}
