package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/doridoridoriand/netwatch/internal/config"
	"github.com/doridoridoriand/netwatch/internal/log"
)

// Target is one probe destination with its resolved method.
type Target struct {
	Name    string
	Address string
	Group   string
	Method  Method
}

// Outcome is the result of one connectivity check across all targets.
type Outcome struct {
	Success bool
	Target  string
	Result  Result
}

// ResultFunc observes every individual probe result.
type ResultFunc func(target Target, result Result)

// Checker answers "is the internet reachable right now" by probing targets
// in order until one answers.
type Checker struct {
	targets []Target
	timeout time.Duration
	logger  *log.Logger
	observe ResultFunc
}

// NewChecker builds a checker. A nil logger discards output.
func NewChecker(targets []Target, timeout time.Duration, logger *log.Logger) *Checker {
	if logger == nil {
		logger = log.Nop()
	}
	return &Checker{targets: targets, timeout: timeout, logger: logger}
}

// TargetsFromConfig resolves the probe method of every configured target.
func TargetsFromConfig(cfg *config.Config) ([]Target, error) {
	targets := make([]Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		method, err := NewMethod(cfg.Global.EffectiveMethod(tc), cfg.Global.DNSName)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", tc.Name, err)
		}
		targets = append(targets, Target{
			Name:    tc.Name,
			Address: tc.Address,
			Group:   tc.Group,
			Method:  method,
		})
	}
	return targets, nil
}

// OnResult registers fn to observe every probe result. Call before use.
func (c *Checker) OnResult(fn ResultFunc) {
	c.observe = fn
}

// Check probes targets sequentially and stops at the first success.
// Any failure to produce a result counts as unreachable.
func (c *Checker) Check(ctx context.Context) Outcome {
	last := Outcome{Result: Result{Error: fmt.Errorf("no probe targets configured")}}
	for _, target := range c.targets {
		if err := ctx.Err(); err != nil {
			return Outcome{Target: target.Name, Result: Result{Error: err}}
		}
		result := c.probeTarget(ctx, target)
		c.logger.LogProbeResult(target.Group, target.Name, result.Success, result.RTT, result.Error)
		if c.observe != nil {
			c.observe(target, result)
		}
		last = Outcome{Success: result.Success, Target: target.Name, Result: result}
		if result.Success {
			return last
		}
	}
	return last
}

// ProbeOnce reports whether any target answered.
func (c *Checker) ProbeOnce(ctx context.Context) bool {
	return c.Check(ctx).Success
}

func (c *Checker) probeTarget(ctx context.Context, target Target) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Success: false, Error: fmt.Errorf("probe panic: %v", r)}
		}
	}()
	if target.Method == nil {
		return Result{Success: false, Error: fmt.Errorf("target %s has no probe method", target.Name)}
	}
	return target.Method.Probe(ctx, target.Address, c.timeout)
}
