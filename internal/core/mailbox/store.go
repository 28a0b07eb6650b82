package mailbox

import (
	"fmt"
	"os"
	"time"

	"github.com/aki/mbx/internal/filemanager"
)

// Store is the set of atomic operations the protocol performs against the
// shared directory. Both the guest server and the host client are written
// against this interface so their state machines can be exercised against an
// in-memory implementation.
//
// Consistency contract: Publish and Rename make content visible atomically;
// a reader either sees the previous file or the complete new one, never a
// partial write. "File does not exist" is a transient, interpretable state
// for every protocol file.
type Store interface {
	// Publish writes data to staging and renames it over final.
	Publish(staging, final string, data []byte) error
	// Rename moves from over to, replacing it. It fails if from does not
	// exist; the caller decides retry policy.
	Rename(from, to string) error
	// Exists reports whether path names an existing file.
	Exists(path string) bool
	// MTime returns the modification time of path, or false if absent.
	MTime(path string) (time.Time, bool)
	// Remove deletes path; removing a nonexistent file is not an error.
	Remove(path string) error
	// Read returns the full content of path.
	Read(path string) ([]byte, error)
	// AppendLine appends one line to path, creating it if needed.
	AppendLine(path, line string) error
}

// DirStore implements Store over a real shared directory using the
// filemanager primitives.
type DirStore struct{}

// NewDirStore returns a Store backed by the filesystem.
func NewDirStore() *DirStore {
	return &DirStore{}
}

// Publish implements Store.
func (s *DirStore) Publish(staging, final string, data []byte) error {
	return filemanager.WriteFileAtomic(staging, final, data)
}

// Rename implements Store.
func (s *DirStore) Rename(from, to string) error {
	return filemanager.Rename(from, to)
}

// Exists implements Store.
func (s *DirStore) Exists(path string) bool {
	return filemanager.Exists(path)
}

// MTime implements Store.
func (s *DirStore) MTime(path string) (time.Time, bool) {
	return filemanager.MTime(path)
}

// Remove implements Store.
func (s *DirStore) Remove(path string) error {
	return filemanager.Remove(path)
}

// Read implements Store.
func (s *DirStore) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// AppendLine implements Store.
func (s *DirStore) AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log for append: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append log line: %w", err)
	}
	return f.Close()
}
