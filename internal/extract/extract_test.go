package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shelver/internal/logging"
)

type fakeExecutor struct {
	output []byte
	err    error
	calls  [][]string
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	return f.output, f.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExtractPlainTextCollapsesAndTruncates(t *testing.T) {
	path := writeFile(t, "notes.TXT", "Invoice   #123\n\n\tTotal Due  $40")
	e := New(Options{MaxChars: 14}, &fakeExecutor{}, logging.NewNop())
	text, ok := e.Extract(context.Background(), path)
	if !ok || text != "Invoice #123 T" {
		t.Fatalf("Extract = (%q, %v)", text, ok)
	}
}

func TestExtractPDFUsesPdftotext(t *testing.T) {
	path := writeFile(t, "invoice_march.pdf", "%PDF")
	fake := &fakeExecutor{output: []byte("Invoice #123 Total Due\n")}
	e := New(Options{PDFToText: "pdftotext", Tesseract: "tesseract"}, fake, logging.NewNop())

	text, ok := e.Extract(context.Background(), path)
	if !ok || text != "Invoice #123 Total Due" {
		t.Fatalf("Extract = (%q, %v)", text, ok)
	}
	want := [][]string{{"pdftotext", "-layout", path, "-"}}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractImageUsesTesseract(t *testing.T) {
	path := writeFile(t, "scan.jpeg", "jpeg")
	fake := &fakeExecutor{output: []byte("RECEIPT")}
	e := New(Options{PDFToText: "pdftotext", Tesseract: "/usr/bin/tesseract"}, fake, logging.NewNop())
	if text, ok := e.Extract(context.Background(), path); !ok || text != "RECEIPT" {
		t.Fatalf("Extract = (%q, %v)", text, ok)
	}
	if got := fake.calls[0]; got[0] != "/usr/bin/tesseract" || got[2] != "stdout" {
		t.Fatalf("call = %v", got)
	}
}

func TestExtractFailuresReturnFalse(t *testing.T) {
	cases := map[string]struct {
		name string
		exec *fakeExecutor
		opts Options
	}{
		"unsupported": {name: "archive.zip", exec: &fakeExecutor{}, opts: Options{PDFToText: "pdftotext"}},
		"tool error":  {name: "a.pdf", exec: &fakeExecutor{err: errors.New("exit 1")}, opts: Options{PDFToText: "pdftotext"}},
		"no binary":   {name: "a.pdf", exec: &fakeExecutor{output: []byte("x")}, opts: Options{}},
		"empty":       {name: "a.pdf", exec: &fakeExecutor{output: []byte(" \n ")}, opts: Options{PDFToText: "pdftotext"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, tc.name, "data")
			e := New(tc.opts, tc.exec, logging.NewNop())
			if text, ok := e.Extract(context.Background(), path); ok || text != "" {
				t.Fatalf("Extract = (%q, %v), want empty", text, ok)
			}
		})
	}
}

func TestCombinedPrefixesFileName(t *testing.T) {
	path := writeFile(t, "invoice_march.txt", "Invoice #123 Total Due")
	e := New(Options{}, &fakeExecutor{}, logging.NewNop())
	got := e.Combined(context.Background(), path)
	if got != "invoice_march.txt\nInvoice #123 Total Due" {
		t.Fatalf("Combined = %q", got)
	}

	bin := writeFile(t, "photo.heic", "x")
	if got := e.Combined(context.Background(), bin); got != "photo.heic" {
		t.Fatalf("Combined without text = %q", got)
	}
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.PNG", "c.md"} {
		if !Supported(name) {
			t.Fatalf("%s should be supported", name)
		}
	}
	if Supported("d.docx") || Supported(strings.Repeat("x", 3)) {
		t.Fatal("unexpected support")
	}
}
