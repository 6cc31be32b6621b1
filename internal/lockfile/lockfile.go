// Package lockfile prevents two vigil processes from watching the same
// root concurrently. The lock lives at <root>/.vigil/vigil.lock and uses
// OS advisory locks, so a crashed process never leaves a stale lock.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	verrors "github.com/vigil-dev/vigil/internal/errors"
)

// Lock is a cross-process exclusive lock on a watch root.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a lock manager for the given lock file path.
func New(path string) *Lock {
	return &Lock{
		path:  path,
		flock: flock.New(path),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire attempts to take the lock without blocking. It returns an
// ErrCodeAlreadyRunning error when another process holds it.
func (l *Lock) TryAcquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return verrors.Wrap(verrors.ErrCodeLockFailed, err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeLockFailed, err)
	}
	if !acquired {
		return verrors.Newf(verrors.ErrCodeAlreadyRunning, nil,
			"another vigil process is already watching this root").
			WithDetail("lock", l.path).
			WithSuggestion("stop the other process or watch a different root")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return verrors.Wrap(verrors.ErrCodeLockFailed, err)
	}
	return nil
}

// Held reports whether this process holds the lock.
func (l *Lock) Held() bool {
	return l.locked
}
