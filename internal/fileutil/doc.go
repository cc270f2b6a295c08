// Package fileutil holds the low-level file operations the relocator builds
// on: streamed hashing, verified copies, and no-clobber moves that fall back
// to copy-then-delete across filesystems.
package fileutil
