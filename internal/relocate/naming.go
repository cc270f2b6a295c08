package relocate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"shelver/internal/fileutil"
)

// DefaultMaxCollisions bounds the "(n)" suffix search.
const DefaultMaxCollisions = 1000

// quarantineLayout is ISO 8601 basic format, safe in file names.
const quarantineLayout = "20060102T150405Z"

// ErrTooManyCollisions is returned when no free "(n)" name was found.
var ErrTooManyCollisions = errors.New("too many name collisions")

func splitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	stem = strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}

// UniquePath returns dir/name if free, otherwise the first free
// dir/stem(n).ext for n in 1..limit.
func UniquePath(dir, name string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxCollisions
	}
	candidate := filepath.Join(dir, name)
	if !fileutil.Exists(candidate) {
		return candidate, nil
	}
	stem, ext := splitName(name)
	for i := 1; i <= limit; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, i, ext))
		if !fileutil.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", ErrTooManyCollisions
}

// QuarantineName returns "<timestamp>_<name>" using UTC basic ISO 8601.
func QuarantineName(at time.Time, name string) string {
	return at.UTC().Format(quarantineLayout) + "_" + name
}
