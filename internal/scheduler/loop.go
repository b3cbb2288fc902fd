package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/doridoridoriand/netwatch/internal/state"
)

// ProbeLoop probes immediately and then once per interval until stopped.
type ProbeLoop struct {
	mu       sync.Mutex
	prober   Prober
	interval time.Duration
	sink     Sink
	opts     options
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewProbeLoop constructs a stopped loop.
func NewProbeLoop(prober Prober, interval time.Duration, sink Sink, opts ...Option) *ProbeLoop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ProbeLoop{
		prober:   prober,
		interval: interval,
		sink:     sink,
		opts:     buildOptions(opts),
	}
}

// Start launches the loop under ctx. Starting a running loop is a no-op.
func (l *ProbeLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		l.run(runCtx)
	}()
}

// Stop cancels the loop and waits for its goroutine. Safe to call when stopped.
func (l *ProbeLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop goroutine is active.
func (l *ProbeLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *ProbeLoop) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		ok := probeOnce(ctx, l.prober, l.opts.timeout)
		if ctx.Err() != nil {
			return
		}
		l.sink(state.ProbeEvent(ok))
		if !sleep(ctx, l.opts.clock, l.interval) {
			return
		}
	}
}
