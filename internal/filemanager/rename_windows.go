//go:build windows

package filemanager

import (
	"os"
	"syscall"
	"time"
)

// atomicRename performs an atomic rename operation on Windows, where the
// rename fails if the destination exists or its handle is still held.
func atomicRename(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if linkErr, ok := err.(*os.LinkError); ok {
		if errno, ok := linkErr.Err.(syscall.Errno); ok {
			// ERROR_ACCESS_DENIED = 5
			// ERROR_ALREADY_EXISTS = 183
			if errno == 5 || errno == 183 {
				_ = os.Remove(dst)
				// Small delay so Windows releases the file handle.
				time.Sleep(10 * time.Millisecond)
				return os.Rename(src, dst)
			}
		}
	}

	return err
}
