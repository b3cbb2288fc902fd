//go:build !unix

package wakehold

import (
	"errors"
	"fmt"
)

// ErrLocked is returned when another process holds the lock file.
var ErrLocked = errors.New("wake lock held by another process")

// LockFileHold is unsupported on this platform.
type LockFileHold struct {
	path string
}

// NewLockFileHold returns a hold on path.
func NewLockFileHold(path string) *LockFileHold {
	return &LockFileHold{path: path}
}

// Acquire always fails.
func (h *LockFileHold) Acquire() error {
	return fmt.Errorf("lock file %s: flock not supported on this platform", h.path)
}

// Release does nothing.
func (h *LockFileHold) Release() error {
	return nil
}
