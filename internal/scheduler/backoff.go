package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/doridoridoriand/netwatch/internal/state"
)

// Backoff runs at most one escalating retry sequence at a time.
//
// A sequence probes, and while the result is the one already believed
// (success when expecting failure, failure when expecting success) it waits
// the current delay, doubles it, and probes again. It ends once the expected
// outcome is seen or the delay reaches the cap.
type Backoff struct {
	mu         sync.Mutex
	prober     Prober
	initial    time.Duration
	max        time.Duration
	sink       Sink
	opts       options
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewBackoff constructs an idle backoff scheduler.
func NewBackoff(prober Prober, initial, max time.Duration, sink Sink, opts ...Option) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	return &Backoff{
		prober:  prober,
		initial: initial,
		max:     max,
		sink:    sink,
		opts:    buildOptions(opts),
	}
}

// Run supersedes any running sequence and starts a new one under ctx.
func (b *Backoff) Run(ctx context.Context, expectFailure bool) {
	b.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	gen := b.generation
	seqCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.cancel = cancel
	b.done = done

	b.opts.logger.Debug("backoff started", map[string]interface{}{
		"expect_failure": expectFailure,
		"generation":     gen,
	})

	go func() {
		defer close(done)
		b.sequence(seqCtx, gen, expectFailure)
	}()
}

// Cancel stops the current sequence, if any, and waits for it to exit.
func (b *Backoff) Cancel() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.generation++
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether a sequence is running.
func (b *Backoff) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

func (b *Backoff) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation == gen
}

func (b *Backoff) sequence(ctx context.Context, gen uint64, expectFailure bool) {
	delay := b.initial
	for {
		if ctx.Err() != nil || !b.current(gen) {
			return
		}
		if b.opts.attempt != nil {
			b.opts.attempt(expectFailure, delay)
		}
		ok := probeOnce(ctx, b.prober, b.opts.timeout)
		if ctx.Err() != nil || !b.current(gen) {
			return
		}
		b.sink(state.ProbeEvent(ok))

		if ok != expectFailure || delay >= b.max {
			b.finish(gen)
			return
		}
		if !sleep(ctx, b.opts.clock, delay) {
			return
		}
		delay *= 2
	}
}

// finish clears the bookkeeping of a sequence that ended on its own.
func (b *Backoff) finish(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != gen {
		return
	}
	b.cancel()
	b.cancel, b.done = nil, nil
}

// Delays returns the waits a sequence schedules when every probe is unsurprising.
func Delays(initial, max time.Duration) []time.Duration {
	var out []time.Duration
	for delay := initial; delay > 0 && delay < max; delay *= 2 {
		out = append(out, delay)
	}
	return out
}
