package fileutil

import "os"

func checkedRename(src, dst string) error {
	if Exists(dst) {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: os.ErrExist}
	}
	return os.Rename(src, dst)
}
