package mailbox

import (
	"io/fs"
	"sync"
	"time"
)

type memEntry struct {
	data  []byte
	mtime time.Time
}

// MemStore is an in-memory Store for tests. It honors the same semantics as
// DirStore: renames are atomic and fail when the source is absent, removes
// are idempotent, and every write bumps the file's observable mtime even
// when the clock stands still.
type MemStore struct {
	mu    sync.Mutex
	files map[string]memEntry
	clock Clock
	seq   int64

	failures map[string]error
}

// NewMemStore returns an empty MemStore stamping mtimes from clock.
func NewMemStore(clock Clock) *MemStore {
	return &MemStore{
		files:    make(map[string]memEntry),
		clock:    clock,
		failures: make(map[string]error),
	}
}

// FailWith makes every subsequent operation targeting path fail with err.
// Pass a nil err to clear the injection.
func (s *MemStore) FailWith(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, path)
		return
	}
	s.failures[path] = err
}

// Publish implements Store.
func (s *MemStore) Publish(staging, final string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[final]; err != nil {
		return err
	}
	delete(s.files, staging)
	s.files[final] = memEntry{data: append([]byte(nil), data...), mtime: s.stamp()}
	return nil
}

// Rename implements Store.
func (s *MemStore) Rename(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[to]; err != nil {
		return err
	}
	entry, ok := s.files[from]
	if !ok {
		return &fs.PathError{Op: "rename", Path: from, Err: fs.ErrNotExist}
	}
	delete(s.files, from)
	entry.mtime = s.stamp()
	s.files[to] = entry
	return nil
}

// Exists implements Store.
func (s *MemStore) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

// MTime implements Store.
func (s *MemStore) MTime(path string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.files[path]
	if !ok {
		return time.Time{}, false
	}
	return entry.mtime, true
}

// Remove implements Store.
func (s *MemStore) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[path]; err != nil {
		return err
	}
	delete(s.files, path)
	return nil
}

// Read implements Store.
func (s *MemStore) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), entry.data...), nil
}

// AppendLine implements Store.
func (s *MemStore) AppendLine(path, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[path]; err != nil {
		return err
	}
	entry := s.files[path]
	entry.data = append(entry.data, []byte(line+"\n")...)
	entry.mtime = s.stamp()
	s.files[path] = entry
	return nil
}

// Put places content directly, bypassing staging. Test setup helper.
func (s *MemStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = memEntry{data: append([]byte(nil), data...), mtime: s.stamp()}
}

// stamp returns a strictly increasing mtime even under a frozen clock, so
// mtime-change detection behaves like a filesystem with fine timestamps.
// Callers must hold s.mu.
func (s *MemStore) stamp() time.Time {
	s.seq++
	return s.clock.Now().Add(time.Duration(s.seq))
}
