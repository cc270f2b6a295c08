package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// HashChunkSize is the read size used when hashing. Files are never loaded
// into memory whole.
const HashChunkSize = 1 << 20

// ErrTargetExists is returned when a move or copy would replace an existing file.
var ErrTargetExists = errors.New("target already exists")

// HashFile returns the hex SHA-256 digest of path, read in HashChunkSize chunks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, HashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// dst must not exist. Mode and modification time are carried over. Removes dst
// on any failure.
func CopyFileVerified(src, dst string) (err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTargetExists, dst)
		}
		return err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.CopyBuffer(multi, tee, make([]byte, HashChunkSize))
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if written != srcInfo.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	mtime := srcInfo.ModTime()
	if err := os.Chtimes(dst, mtime, mtime); err != nil {
		return fmt.Errorf("preserve modification time: %w", err)
	}
	return nil
}

// MoveResult reports how MoveFile relocated a file.
type MoveResult struct {
	// CrossDevice is true when the move fell back to copy-then-delete.
	CrossDevice bool
	// SourceRemoveErr is set when the copy succeeded but the source could not
	// be removed. Both copies then exist.
	SourceRemoveErr error
}

// MoveFile moves src to dst without replacing an existing dst. Same-volume
// moves are a single rename; cross-device moves copy to a temporary name in
// the destination directory, verify, publish, and only then remove src. On
// failure src is untouched.
func MoveFile(src, dst string) (MoveResult, error) {
	err := renameNoReplace(src, dst)
	if err == nil {
		return MoveResult{}, nil
	}
	if errors.Is(err, os.ErrExist) {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrTargetExists, dst)
	}
	if !errors.Is(err, unix.EXDEV) {
		return MoveResult{}, err
	}

	temp := filepath.Join(filepath.Dir(dst), ".shelver-"+filepath.Base(dst)+".partial")
	_ = os.Remove(temp)
	if err := CopyFileVerified(src, temp); err != nil {
		return MoveResult{CrossDevice: true}, fmt.Errorf("copy across devices: %w", err)
	}
	if err := renameNoReplace(temp, dst); err != nil {
		_ = os.Remove(temp)
		if errors.Is(err, os.ErrExist) {
			return MoveResult{CrossDevice: true}, fmt.Errorf("%w: %s", ErrTargetExists, dst)
		}
		return MoveResult{CrossDevice: true}, err
	}
	result := MoveResult{CrossDevice: true}
	if err := os.Remove(src); err != nil {
		result.SourceRemoveErr = err
	}
	return result, nil
}

// Exists reports whether path exists. Errors other than not-exist count as
// existing so callers never treat an unreadable path as free.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
