package ingest

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked reports that another process still holds the file.
var ErrLocked = errors.New("file is locked")

// LockProbe returns nil when path can be opened for reading and is not held
// under an exclusive lock.
type LockProbe func(path string) error

// ProbeReadable opens path read-only and tries a non-blocking shared flock.
// Filesystems without flock support count as readable.
func ProbeReadable(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	defer f.Close()

	fd := int(f.Fd())
	err = unix.Flock(fd, unix.LOCK_SH|unix.LOCK_NB)
	switch {
	case err == nil:
		_ = unix.Flock(fd, unix.LOCK_UN)
		return nil
	case errors.Is(err, unix.EWOULDBLOCK):
		return ErrLocked
	case errors.Is(err, unix.ENOLCK), errors.Is(err, unix.EOPNOTSUPP), errors.Is(err, unix.EINVAL):
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
}
