package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

var timePattern = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// ExecMethod runs the system ping command; success is a zero exit status.
type ExecMethod struct {
	command string
}

// NewExecMethod returns a probe that shells out to ping.
func NewExecMethod() *ExecMethod {
	return &ExecMethod{command: "ping"}
}

// Probe runs one ping and parses the RTT from its output when present.
func (p *ExecMethod) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Error: err}
	}
	start := time.Now()
	cmd := exec.CommandContext(ctx, p.command, pingArgs(addr, timeout)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{Success: false, Error: fmt.Errorf("%s exited with status %d", p.command, exitErr.ExitCode())}
		}
		return Result{Success: false, Error: fmt.Errorf("external ping failed: %w", err)}
	}
	rtt := parseRTT(out)
	if rtt == 0 {
		rtt = time.Since(start)
	}
	return Result{Success: true, RTT: rtt}
}

func pingArgs(addr string, timeout time.Duration) []string {
	switch runtime.GOOS {
	case "darwin":
		timeoutMs := maxInt(100, int(timeout.Milliseconds()))
		return []string{"-n", "-c", "1", "-W", strconv.Itoa(timeoutMs), addr}
	default:
		timeoutSec := maxInt(1, int(timeout.Seconds()+0.5))
		return []string{"-n", "-c", "1", "-W", strconv.Itoa(timeoutSec), addr}
	}
}

func parseRTT(output []byte) time.Duration {
	matches := timePattern.FindSubmatch(output)
	if len(matches) < 2 {
		return 0
	}
	value, err := strconv.ParseFloat(string(matches[1]), 64)
	if err != nil {
		return 0
	}
	return time.Duration(value * float64(time.Millisecond))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
