//go:build unix

package wakehold

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the lock file.
var ErrLocked = errors.New("wake lock held by another process")

// LockFileHold takes an exclusive flock on path. Power managers that honor
// the lock file keep the host awake while it is held.
type LockFileHold struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewLockFileHold returns a hold on path.
func NewLockFileHold(path string) *LockFileHold {
	return &LockFileHold{path: path}
}

// Acquire creates path if needed, locks it without blocking, and records the pid.
func (h *LockFileHold) Acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file != nil {
		return nil
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("%s: %w", h.path, ErrLocked)
		}
		return fmt.Errorf("lock %s: %w", h.path, err)
	}
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	h.file = f
	return nil
}

// Release unlocks and removes the lock file.
func (h *LockFileHold) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}
	f := h.file
	h.file = nil

	var err error
	if rmErr := os.Remove(h.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = multierr.Append(err, rmErr)
	}
	if unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN); unlockErr != nil {
		err = multierr.Append(err, fmt.Errorf("unlock %s: %w", h.path, unlockErr))
	}
	return multierr.Append(err, f.Close())
}
