//go:build !windows

package filemanager

import "os"

// atomicRename performs an atomic rename operation on Unix-like systems.
// On Unix, os.Rename replaces an existing destination atomically.
func atomicRename(src, dst string) error {
	return os.Rename(src, dst)
}
