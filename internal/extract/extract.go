package extract

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"shelver/internal/logging"
	"shelver/internal/textutil"
)

const (
	defaultMaxChars = 4000
	defaultTimeout  = 60 * time.Second
)

type kind int

const (
	kindText kind = iota + 1
	kindPDF
	kindImage
)

var supported = map[string]kind{
	".txt":  kindText,
	".md":   kindText,
	".csv":  kindText,
	".json": kindText,
	".xml":  kindText,
	".html": kindText,
	".htm":  kindText,
	".log":  kindText,
	".rtf":  kindText,
	".yaml": kindText,
	".yml":  kindText,
	".pdf":  kindPDF,
	".png":  kindImage,
	".jpg":  kindImage,
	".jpeg": kindImage,
	".tif":  kindImage,
	".tiff": kindImage,
}

// Executor runs an external tool and returns its stdout.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// Options configures an Extractor.
type Options struct {
	MaxChars  int
	PDFToText string
	Tesseract string
	Timeout   time.Duration
}

// Extractor implements content extraction.
type Extractor struct {
	opts   Options
	exec   Executor
	logger *slog.Logger
}

// New returns an Extractor. A nil executor runs real binaries.
func New(opts Options, executor Executor, logger *slog.Logger) *Extractor {
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if executor == nil {
		executor = commandExecutor{}
	}
	return &Extractor{opts: opts, exec: executor, logger: logging.NewComponentLogger(logger, "extract")}
}

// Supported reports whether path has an extension extraction understands.
func Supported(path string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract returns whitespace-collapsed text from path truncated to MaxChars
// runes. ok is false for unsupported types, failures and empty output.
func (e *Extractor) Extract(ctx context.Context, path string) (string, bool) {
	k, found := supported[strings.ToLower(filepath.Ext(path))]
	if !found {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	var (
		raw []byte
		err error
	)
	switch k {
	case kindText:
		raw, err = e.readText(path)
	case kindPDF:
		raw, err = e.run(ctx, e.opts.PDFToText, "-layout", path, "-")
	case kindImage:
		raw, err = e.run(ctx, e.opts.Tesseract, path, "stdout")
	}
	if err != nil {
		logging.WithContext(ctx, e.logger).Debug("extraction failed",
			logging.String(logging.FieldFile, path),
			logging.Error(err),
		)
		return "", false
	}
	text := textutil.Truncate(strings.Join(strings.Fields(strings.ToValidUTF8(string(raw), "")), " "), e.opts.MaxChars)
	if text == "" {
		return "", false
	}
	return text, true
}

// Combined returns the classifier input for path: the file name, a newline,
// and the extracted text when there is any, bounded to MaxChars runes.
func (e *Extractor) Combined(ctx context.Context, path string) string {
	name := filepath.Base(path)
	text, ok := e.Extract(ctx, path)
	if !ok {
		return name
	}
	return textutil.Truncate(name+"\n"+text, e.opts.MaxChars)
}

func (e *Extractor) readText(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// UTF-8 runes are at most four bytes.
	return io.ReadAll(io.LimitReader(f, int64(e.opts.MaxChars)*4))
}

func (e *Extractor) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, exec.ErrNotFound
	}
	return e.exec.Run(ctx, binary, args)
}
