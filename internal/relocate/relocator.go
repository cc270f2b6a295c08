package relocate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"shelver/internal/fileutil"
	"shelver/internal/logging"
	"shelver/internal/metrics"
	"shelver/internal/services"
)

// Outcome classifies a successful relocation.
type Outcome string

const (
	// OutcomeMoved means the file now lives at Destination.
	OutcomeMoved Outcome = "moved"
	// OutcomeDuplicate means identical content already existed at Destination
	// and the source went to quarantine.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeInPlace means the file was already at its destination.
	OutcomeInPlace Outcome = "in_place"
	// OutcomeReviewed means the file was parked in the review folder.
	OutcomeReviewed Outcome = "reviewed"
)

// Result describes where a file ended up.
type Result struct {
	Outcome Outcome
	Source  string
	// Destination is the logical result: the new path, or for duplicates the
	// existing file's path.
	Destination string
	// QuarantinePath is set for duplicates.
	QuarantinePath string
	Renamed        bool
	CrossDevice    bool
	// SourceRemoveErr is set when a cross-device copy succeeded but the
	// original could not be removed.
	SourceRemoveErr error
}

// Options configures a Relocator.
type Options struct {
	WatchRoot     string
	ReviewDir     string
	QuarantineDir string
	Accessor      Accessor
	MaxCollisions int
	Now           func() time.Time
}

// Relocator performs physical moves.
type Relocator struct {
	opts   Options
	logger *slog.Logger
}

// New returns a Relocator. A nil Accessor uses DirAccessor.
func New(opts Options, logger *slog.Logger) *Relocator {
	if opts.Accessor == nil {
		opts.Accessor = &DirAccessor{}
	}
	if opts.MaxCollisions <= 0 {
		opts.MaxCollisions = DefaultMaxCollisions
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Relocator{opts: opts, logger: logging.NewComponentLogger(logger, "relocate")}
}

// ReviewDir returns the review holding folder.
func (r *Relocator) ReviewDir() string { return r.opts.ReviewDir }

// QuarantineDir returns the quarantine folder.
func (r *Relocator) QuarantineDir() string { return r.opts.QuarantineDir }

// Relocate moves src into folder, resolving collisions by content hash.
func (r *Relocator) Relocate(ctx context.Context, src, folder string) (Result, error) {
	start := time.Now()
	defer func() { metrics.RelocationSeconds.Observe(time.Since(start).Seconds()) }()

	folder = filepath.Clean(folder)
	release := r.beginAccess(ctx, folder)
	defer release()

	result := Result{Source: src}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return result, services.Wrap(services.ErrRelocation, "relocate", "create folder", folder, err)
	}

	name := filepath.Base(src)
	candidate := filepath.Join(folder, name)
	if candidate == filepath.Clean(src) {
		result.Outcome = OutcomeInPlace
		result.Destination = candidate
		return result, nil
	}

	if !fileutil.Exists(candidate) {
		moved, err := r.move(src, candidate)
		if err == nil {
			return r.finish(ctx, result, OutcomeMoved, candidate, moved, false), nil
		}
		if !errors.Is(err, fileutil.ErrTargetExists) {
			return result, err
		}
		// Lost a race with another writer; resolve as a collision.
	}

	same, err := sameContent(ctx, src, candidate)
	if err != nil {
		return result, services.Wrap(services.ErrRelocation, "relocate", "hash", name, err)
	}
	if same {
		quarantined, err := r.quarantine(ctx, src)
		if err != nil {
			return result, err
		}
		result.Outcome = OutcomeDuplicate
		result.Destination = candidate
		result.QuarantinePath = quarantined
		logging.WithContext(ctx, r.logger).Info("duplicate quarantined", logging.Args(append(
			logging.DecisionAttrs("duplicate", "quarantined", "identical content at destination"),
			logging.String("existing", candidate),
			logging.String("quarantine_path", quarantined),
		)...)...)
		return result, nil
	}

	target, moved, err := r.moveUnique(src, folder, name)
	if err != nil {
		return result, err
	}
	return r.finish(ctx, result, OutcomeMoved, target, moved, true), nil
}

// ToReview parks src in the review folder. Collisions always rename.
func (r *Relocator) ToReview(ctx context.Context, src string) (Result, error) {
	result := Result{Source: src}
	release := r.beginAccess(ctx, r.opts.ReviewDir)
	defer release()
	if err := os.MkdirAll(r.opts.ReviewDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrRelocation, "review", "create folder", r.opts.ReviewDir, err)
	}
	name := filepath.Base(src)
	target, moved, err := r.moveUnique(src, r.opts.ReviewDir, name)
	if err != nil {
		return result, err
	}
	return r.finish(ctx, result, OutcomeReviewed, target, moved, filepath.Base(target) != name), nil
}

// Restore moves from back to to. to must not exist; its parent is created.
func (r *Relocator) Restore(ctx context.Context, from, to string) error {
	if _, err := os.Stat(from); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "undo", "stat", from, err)
		}
		return services.Wrap(services.ErrRelocation, "undo", "stat", from, err)
	}
	release := r.beginAccess(ctx, filepath.Dir(to))
	defer release()
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return services.Wrap(services.ErrRelocation, "undo", "create folder", filepath.Dir(to), err)
	}
	moved, err := r.move(from, to)
	if err != nil {
		return err
	}
	r.logSourceRemoval(ctx, from, moved)
	logging.WithContext(ctx, r.logger).Info("file restored",
		logging.String("from", from),
		logging.String("to", to),
	)
	return nil
}

func (r *Relocator) quarantine(ctx context.Context, src string) (string, error) {
	release := r.beginAccess(ctx, r.opts.QuarantineDir)
	defer release()
	if err := os.MkdirAll(r.opts.QuarantineDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrRelocation, "quarantine", "create folder", r.opts.QuarantineDir, err)
	}
	name := QuarantineName(r.opts.Now(), filepath.Base(src))
	target, _, err := r.moveUnique(src, r.opts.QuarantineDir, name)
	return target, err
}

// moveUnique picks a free name and moves, retrying if another writer takes
// the name between the check and the move.
func (r *Relocator) moveUnique(src, dir, name string) (string, fileutil.MoveResult, error) {
	const raceRetries = 3
	var lastErr error
	for attempt := 0; attempt < raceRetries; attempt++ {
		target, err := UniquePath(dir, name, r.opts.MaxCollisions)
		if err != nil {
			return "", fileutil.MoveResult{}, services.Wrap(services.ErrRelocation, "relocate", "unique name",
				fmt.Sprintf("%s in %s", name, dir), err)
		}
		moved, err := r.move(src, target)
		if err == nil {
			return target, moved, nil
		}
		if !errors.Is(err, fileutil.ErrTargetExists) {
			return "", moved, err
		}
		lastErr = err
	}
	return "", fileutil.MoveResult{}, lastErr
}

func (r *Relocator) move(src, dst string) (fileutil.MoveResult, error) {
	moved, err := fileutil.MoveFile(src, dst)
	if err != nil {
		return moved, services.Wrap(services.ErrRelocation, "relocate", "move",
			fmt.Sprintf("%s -> %s", src, dst), err)
	}
	return moved, nil
}

func (r *Relocator) finish(ctx context.Context, result Result, outcome Outcome, target string, moved fileutil.MoveResult, renamed bool) Result {
	result.Outcome = outcome
	result.Destination = target
	result.Renamed = renamed
	result.CrossDevice = moved.CrossDevice
	result.SourceRemoveErr = moved.SourceRemoveErr
	r.logSourceRemoval(ctx, result.Source, moved)
	logging.WithContext(ctx, r.logger).Debug("file relocated",
		logging.String("destination", target),
		logging.String("outcome", string(outcome)),
		logging.Bool("renamed", renamed),
		logging.Bool("cross_device", moved.CrossDevice),
	)
	return result
}

func (r *Relocator) logSourceRemoval(ctx context.Context, src string, moved fileutil.MoveResult) {
	if moved.SourceRemoveErr == nil {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "copied across devices but could not remove source", "source_remove_failed",
		logging.String("source", src),
		logging.Error(moved.SourceRemoveErr),
		logging.String(logging.FieldErrorHint, "delete the original manually once the copy is confirmed"),
		logging.String(logging.FieldImpact, "file exists in both locations"),
	)
}

// beginAccess acquires a handle for destinations outside the watch root and
// returns its release func. Failure to acquire is logged and ignored.
func (r *Relocator) beginAccess(ctx context.Context, folder string) func() {
	if r.opts.Accessor == nil || within(r.opts.WatchRoot, folder) {
		return func() {}
	}
	handle, err := r.opts.Accessor.BeginAccess(folder)
	if err != nil || handle == nil {
		logging.WithContext(ctx, r.logger).Debug("scoped access unavailable; trying direct access",
			logging.String("folder", folder),
			logging.Error(err),
		)
		return func() {}
	}
	return func() { r.opts.Accessor.EndAccess(handle) }
}

func within(root, path string) bool {
	if strings.TrimSpace(root) == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// sameContent hashes both files concurrently.
func sameContent(ctx context.Context, a, b string) (bool, error) {
	var hashA, hashB string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hashA, err = fileutil.HashFile(a)
		return err
	})
	g.Go(func() error {
		var err error
		hashB, err = fileutil.HashFile(b)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	return hashA != "" && hashA == hashB, nil
}
