package wakehold

import (
	"fmt"
	"sync"

	"github.com/doridoridoriand/netwatch/internal/config"
	"github.com/doridoridoriand/netwatch/internal/log"
)

// Hold is an OS power-management primitive that keeps the host awake.
type Hold interface {
	Acquire() error
	Release() error
}

// New returns the hold for mode. path is only used by the lock-file mode.
func New(mode config.WakeHoldMode, path string) (Hold, error) {
	switch mode {
	case config.WakeHoldNone, "":
		return Nop{}, nil
	case config.WakeHoldInhibit:
		return NewInhibitHold("netwatch", "monitoring connectivity"), nil
	case config.WakeHoldLockFile:
		if path == "" {
			return nil, fmt.Errorf("wakehold lockfile mode requires a path")
		}
		return NewLockFileHold(path), nil
	default:
		return nil, fmt.Errorf("unknown wakehold mode %q", mode)
	}
}

// Nop holds nothing.
type Nop struct{}

// Acquire does nothing.
func (Nop) Acquire() error { return nil }

// Release does nothing.
func (Nop) Release() error { return nil }

// Guard makes a Hold idempotent: at most one live acquisition at a time.
type Guard struct {
	mu     sync.Mutex
	hold   Hold
	held   bool
	logger *log.Logger
}

// NewGuard wraps hold. A nil hold behaves like Nop.
func NewGuard(hold Hold, logger *log.Logger) *Guard {
	if hold == nil {
		hold = Nop{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Guard{hold: hold, logger: logger}
}

// Acquire takes the hold unless it is already held.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return nil
	}
	if err := g.hold.Acquire(); err != nil {
		return fmt.Errorf("acquire wake hold: %w", err)
	}
	g.held = true
	g.logger.Debug("wake hold acquired", nil)
	return nil
}

// Release drops the hold if held. The guard forgets the hold even when the
// underlying release fails so a later Acquire can retry.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held {
		return nil
	}
	g.held = false
	if err := g.hold.Release(); err != nil {
		return fmt.Errorf("release wake hold: %w", err)
	}
	g.logger.Debug("wake hold released", nil)
	return nil
}

// Held reports whether the guard currently owns the hold.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
