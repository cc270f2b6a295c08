package relocate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Handle is an acquired grant to write under a destination.
type Handle struct {
	Path string
}

// Accessor acquires scoped access to destinations outside the watched root.
type Accessor interface {
	BeginAccess(path string) (*Handle, error)
	EndAccess(h *Handle)
}

// DirAccessor checks that the nearest existing ancestor of a destination is
// writable. It holds no OS resource, so EndAccess only balances the count.
type DirAccessor struct {
	open atomic.Int64
}

// BeginAccess returns a handle when path (or the directory that would
// contain it) is writable by this process.
func (a *DirAccessor) BeginAccess(path string) (*Handle, error) {
	dir, err := nearestExisting(path)
	if err != nil {
		return nil, err
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return nil, fmt.Errorf("no write access to %s: %w", dir, err)
	}
	a.open.Add(1)
	return &Handle{Path: path}, nil
}

// EndAccess releases h.
func (a *DirAccessor) EndAccess(h *Handle) {
	if h != nil {
		a.open.Add(-1)
	}
}

// Open returns the number of handles not yet released.
func (a *DirAccessor) Open() int64 { return a.open.Load() }

func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if info.IsDir() {
				return current, nil
			}
			return filepath.Dir(current), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		current = parent
	}
}
