// Package filemanager provides the file primitives the mailbox protocol is
// built on: staged atomic writes, best-effort atomic rename with a copy
// fallback, and existence/mtime/remove helpers. It also provides a
// process-safe YAML file manager used for non-protocol files such as the
// mailbox configuration.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ErrLockTimeout is returned when acquiring a file lock times out.
var ErrLockTimeout = errors.New("timeout acquiring file lock")

// WriteFileAtomic publishes data under final by writing it to staging,
// syncing, and renaming staging over final. A concurrent reader of final
// never observes a partial write. Any leftover staging file from a previous
// failed publish is removed first.
func WriteFileAtomic(staging, final string, data []byte) error {
	if err := Remove(staging); err != nil {
		return fmt.Errorf("failed to clear staging file: %w", err)
	}

	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(staging)
		return fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(staging)
		return fmt.Errorf("failed to sync staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("failed to close staging file: %w", err)
	}

	if err := Rename(staging, final); err != nil {
		_ = os.Remove(staging)
		return err
	}
	return nil
}

// Rename moves from to to, replacing any existing destination. On
// filesystems where rename over an existing file fails, the destination is
// removed first; if the rename still fails, a copy-then-delete fallback is
// attempted. Failure is reported to the caller, never retried here.
//
// A missing source fails without side effects. Claim renames race by
// design: the loser's failure must leave the winner's destination intact.
func Rename(from, to string) error {
	firstErr := atomicRename(from, to)
	if firstErr == nil {
		return nil
	}

	if !Exists(from) {
		return fmt.Errorf("failed to move %s -> %s: %w", from, to, firstErr)
	}

	// Destination may exist on filesystems without replace semantics.
	_ = os.Remove(to)
	if err := atomicRename(from, to); err == nil {
		return nil
	}

	if err := copyFile(from, to); err != nil {
		return fmt.Errorf("failed to move %s -> %s: %w", from, to, err)
	}
	_ = os.Remove(from)
	return nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MTime returns the modification time of path. The second return value is
// false if the file does not exist or cannot be observed; absence is a valid
// state for protocol files, not an error.
func MTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Remove deletes path. Removing a nonexistent file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// Manager provides process-safe YAML file operations guarded by flock. The
// mailbox protocol itself never uses locks (the other side of a shared
// folder cannot be assumed to honor them); Manager serves host-local files
// such as mbx.yaml.
type Manager[T any] struct {
	lockTimeout time.Duration
}

// NewManager creates a file manager with default settings.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		lockTimeout: 5 * time.Second,
	}
}

// Read reads and unmarshals a YAML file under a shared lock.
func (m *Manager[T]) Read(ctx context.Context, path string) (*T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	lock := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	locked, err := lock.TryRLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result T
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &result, nil
}

// Write marshals data to YAML and writes it under an exclusive lock using a
// temp file plus atomic rename.
func (m *Manager[T]) Write(ctx context.Context, path string, data *T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer func() { _ = lock.Unlock() }()

	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}

	// Unique temp name to avoid conflicts on Windows.
	tempFile := fmt.Sprintf("%s.%d.%d.tmp", path, os.Getpid(), time.Now().UnixNano())
	if err := WriteFileAtomic(tempFile, path, yamlData); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
