package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shelver/internal/logging"
	"shelver/internal/services"
)

// Decision is the readiness filter's verdict for one entry.
type Decision int

const (
	DecisionReady Decision = iota
	DecisionMissing
	DecisionNotRegular
	DecisionIgnored
	DecisionWhitelisted
	DecisionTooYoung
	DecisionProcessed
	DecisionLocked
)

func (d Decision) String() string {
	switch d {
	case DecisionReady:
		return "ready"
	case DecisionMissing:
		return "missing"
	case DecisionNotRegular:
		return "not_regular"
	case DecisionIgnored:
		return "ignored"
	case DecisionWhitelisted:
		return "whitelisted"
	case DecisionTooYoung:
		return "too_young"
	case DecisionProcessed:
		return "processed"
	case DecisionLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Deferred reports whether the decision means "try again later".
func (d Decision) Deferred() bool {
	return d == DecisionTooYoung || d == DecisionLocked
}

// Candidate is a directory entry with the attributes the pipeline keys on.
type Candidate struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Name returns the base name of the candidate.
func (c Candidate) Name() string {
	return filepath.Base(c.Path)
}

// Deferrer receives files that are not ready yet.
type Deferrer interface {
	Pending(path string) bool
	Enqueue(path string) (attempts int, accepted bool)
	Remove(path string)
}

// Reporter records the non-terminal observations the filter is required to log.
type Reporter interface {
	Whitelisted(ctx context.Context, c Candidate)
	Retrying(ctx context.Context, c Candidate, attempts int, cause error)
}

// Options configures a Scanner.
type Options struct {
	Dir       string
	MinAge    time.Duration
	Ignore    []string
	Whitelist []string
	Probe     LockProbe
	Now       func() time.Time
}

// Scanner enumerates the watched directory and applies the readiness filter.
type Scanner struct {
	dir       string
	minAge    time.Duration
	ignore    map[string]struct{}
	whitelist map[string]struct{}
	probe     LockProbe
	now       func() time.Time

	registry *Registry
	deferrer Deferrer
	reporter Reporter
	logger   *slog.Logger
}

// NewScanner wires a scanner. reporter may be nil.
func NewScanner(opts Options, registry *Registry, deferrer Deferrer, reporter Reporter, logger *slog.Logger) *Scanner {
	if opts.Probe == nil {
		opts.Probe = ProbeReadable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Scanner{
		dir:       opts.Dir,
		minAge:    opts.MinAge,
		ignore:    extensionSet(opts.Ignore),
		whitelist: extensionSet(opts.Whitelist),
		probe:     opts.Probe,
		now:       opts.Now,
		registry:  registry,
		deferrer:  deferrer,
		reporter:  reporter,
		logger:    logging.NewComponentLogger(logger, "scanner"),
	}
}

// Registry exposes the processed-file registry the scanner consults.
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Scan lists the directory once and returns the files ready for
// classification. Deferred files are handed to the Deferrer unless it already
// tracks them.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "scan", "read dir", "Watched directory is missing", err)
		}
		return nil, services.Wrap(services.ErrTransient, "scan", "read dir", "Unable to list watched directory", err)
	}

	var ready []Candidate
	counts := make(map[Decision]int)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ready, ctx.Err()
		}
		path := filepath.Join(s.dir, entry.Name())
		decision, candidate, cause := s.Evaluate(path)
		counts[decision]++
		switch decision {
		case DecisionReady:
			if s.deferrer != nil {
				s.deferrer.Remove(path)
			}
			ready = append(ready, candidate)
		case DecisionWhitelisted:
			s.noteWhitelisted(ctx, candidate)
		case DecisionTooYoung, DecisionLocked:
			s.deferIfUntracked(ctx, decision, candidate, cause)
		}
	}

	s.logger.Debug("scan complete",
		logging.String("dir", s.dir),
		logging.Int("entries", len(entries)),
		logging.Int("ready", len(ready)),
		logging.Int("deferred", counts[DecisionTooYoung]+counts[DecisionLocked]),
		logging.Int("skipped", counts[DecisionProcessed]+counts[DecisionIgnored]+counts[DecisionNotRegular]),
	)
	return ready, nil
}

// Recheck evaluates a single path for the retry loop. The whitelist log is
// applied here too; deferral is left to the caller.
func (s *Scanner) Recheck(ctx context.Context, path string) (Candidate, Decision, error) {
	decision, candidate, cause := s.Evaluate(path)
	if decision == DecisionWhitelisted {
		s.noteWhitelisted(ctx, candidate)
	}
	return candidate, decision, cause
}

// Evaluate applies the readiness filter to path without side effects. The
// returned error explains DecisionLocked.
func (s *Scanner) Evaluate(path string) (Decision, Candidate, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return DecisionMissing, Candidate{Path: path}, err
	}
	candidate := Candidate{Path: path, ModTime: info.ModTime(), Size: info.Size()}
	if !info.Mode().IsRegular() {
		return DecisionNotRegular, candidate, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := s.ignore[ext]; ok {
		return DecisionIgnored, candidate, nil
	}
	if _, ok := s.whitelist[ext]; ok {
		return DecisionWhitelisted, candidate, nil
	}
	if s.now().Sub(info.ModTime()) < s.minAge {
		return DecisionTooYoung, candidate, nil
	}
	if s.registry.Seen(path, info.ModTime()) {
		return DecisionProcessed, candidate, nil
	}
	if err := s.probe(path); err != nil {
		return DecisionLocked, candidate, err
	}
	return DecisionReady, candidate, nil
}

func (s *Scanner) noteWhitelisted(ctx context.Context, c Candidate) {
	if !s.registry.Claim(c.Path, c.ModTime) {
		return
	}
	logging.WithContext(services.WithFile(ctx, c.Path), s.logger).Info("whitelisted file left in place",
		logging.Args(logging.DecisionAttrs("ingest_filter", "whitelisted", filepath.Ext(c.Path))...)...,
	)
	if s.reporter != nil {
		s.reporter.Whitelisted(ctx, c)
	}
}

func (s *Scanner) deferIfUntracked(ctx context.Context, decision Decision, c Candidate, cause error) {
	if s.deferrer == nil || s.deferrer.Pending(c.Path) {
		return
	}
	attempts, accepted := s.deferrer.Enqueue(c.Path)
	if !accepted || decision != DecisionLocked {
		return
	}
	logging.WithContext(services.WithFile(ctx, c.Path), s.logger).Info("file locked; retry scheduled",
		logging.Int("attempt", attempts),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "file_locked"),
	)
	if s.reporter != nil {
		s.reporter.Retrying(ctx, c, attempts, cause)
	}
}

func extensionSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
