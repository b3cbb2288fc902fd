package wakehold

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// defaultStartupGrace is how long a fresh inhibitor must survive before the
// hold counts as taken. systemd-inhibit exits at once when logind refuses it.
const defaultStartupGrace = 200 * time.Millisecond

// InhibitHold keeps a systemd-inhibit child alive for as long as the hold is
// taken. logind drops the inhibitor lock when the child exits.
type InhibitHold struct {
	mu      sync.Mutex
	command string
	args    []string
	grace   time.Duration
	cmd     *exec.Cmd
	exited  chan error
}

// NewInhibitHold blocks sleep and idle on behalf of who.
func NewInhibitHold(who, why string) *InhibitHold {
	return &InhibitHold{
		command: "systemd-inhibit",
		args:    inhibitArgs(who, why),
		grace:   defaultStartupGrace,
	}
}

func inhibitArgs(who, why string) []string {
	return []string{
		"--what=sleep:idle",
		"--who=" + who,
		"--why=" + why,
		"--mode=block",
		"sleep", "infinity",
	}
}

// Acquire spawns the inhibitor process. A child that exits within the
// startup grace never held the lock, so Acquire reports its exit.
func (h *InhibitHold) Acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd != nil {
		return nil
	}
	path, err := exec.LookPath(h.command)
	if err != nil {
		return fmt.Errorf("%s not available: %w", h.command, err)
	}
	var stderr bytes.Buffer
	cmd := exec.Command(path, h.args...)
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", h.command, err)
	}
	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	grace := h.grace
	if grace <= 0 {
		grace = defaultStartupGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-exited:
		return startupError(h.command, err, stderr.String())
	case <-timer.C:
	}

	h.cmd = cmd
	h.exited = exited
	return nil
}

// Release terminates the inhibitor process and reaps it.
func (h *InhibitHold) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil {
		return nil
	}
	cmd, exited := h.cmd, h.exited
	h.cmd, h.exited = nil, nil

	select {
	case err := <-exited:
		// The child died on its own; the inhibitor was already gone.
		if err != nil {
			return fmt.Errorf("%s exited early: %w", h.command, err)
		}
		return nil
	default:
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop %s: %w", h.command, err)
	}
	<-exited
	return nil
}

// Active reports whether the inhibitor process is running.
func (h *InhibitHold) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd != nil
}

// startupError describes an inhibitor that exited before the hold was taken.
func startupError(command string, err error, stderr string) error {
	if err == nil {
		err = errors.New("exited with status 0")
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s exited at startup: %w: %s", command, err, msg)
	}
	return fmt.Errorf("%s exited at startup: %w", command, err)
}
