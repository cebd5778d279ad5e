package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriterLock is a cross-process exclusive lock guaranteeing the
// single-writer-transaction semantics the sync round requires: only one
// Sync may be in flight against a given index directory at a time,
// whether from the same process or another.
type WriterLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriterLock returns a lock for the index directory dir. The lock file
// is created at <dir>/.sync.lock.
func NewWriterLock(dir string) *WriterLock {
	path := filepath.Join(dir, ".sync.lock")
	return &WriterLock{path: path, flock: flock.New(path)}
}

// Lock blocks until the exclusive lock is acquired.
func (l *WriterLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire writer lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking, reporting false
// if another sync is already in progress.
func (l *WriterLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire writer lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an already-unlocked lock.
func (l *WriterLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release writer lock: %w", err)
	}
	l.locked = false
	return nil
}

// IsLocked reports whether this instance currently holds the lock.
func (l *WriterLock) IsLocked() bool {
	return l.locked
}
