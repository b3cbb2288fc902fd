package scheduler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/doridoridoriand/netwatch/internal/log"
	"github.com/doridoridoriand/netwatch/internal/state"
)

// Prober answers a single reachability question. Failures to run count as false.
type Prober interface {
	ProbeOnce(ctx context.Context) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) bool

// ProbeOnce calls f.
func (f ProberFunc) ProbeOnce(ctx context.Context) bool {
	return f(ctx)
}

// Sink receives probe events. It must not block.
type Sink func(state.Event)

// Option configures a ProbeLoop or Backoff.
type Option func(*options)

type options struct {
	clock   clock.Clock
	logger  *log.Logger
	timeout time.Duration
	attempt func(expectFailure bool, delay time.Duration)
}

func defaultOptions() options {
	return options{clock: clock.New(), logger: log.Nop()}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProbeTimeout bounds each individual probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithAttemptHook observes every backoff attempt before it probes.
func WithAttemptHook(fn func(expectFailure bool, delay time.Duration)) Option {
	return func(o *options) {
		o.attempt = fn
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func probeOnce(ctx context.Context, prober Prober, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return prober.ProbeOnce(ctx)
}

// sleep waits d on c, returning false when ctx ends first.
func sleep(ctx context.Context, c clock.Clock, d time.Duration) bool {
	timer := c.Timer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
