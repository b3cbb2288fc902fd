package monitor

import (
	"context"
	"sync"

	"github.com/doridoridoriand/netwatch/internal/state"
)

// recorder collects collaborator calls in the order they happen.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

func (r *recorder) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeIndicator struct{ rec *recorder }

func (f fakeIndicator) ShowMonitoring() { f.rec.add("show_monitoring") }
func (f fakeIndicator) ShowOnline()     { f.rec.add("show_online") }
func (f fakeIndicator) ShowOffline()    { f.rec.add("show_offline") }
func (f fakeIndicator) Hide()           { f.rec.add("hide") }

type fakeProbes struct {
	rec     *recorder
	mu      sync.Mutex
	running bool
}

func (f *fakeProbes) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	f.running = true
	f.rec.add("start_probing")
}

func (f *fakeProbes) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.rec.add("stop_probing")
}

func (f *fakeProbes) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakeBackoff struct {
	rec *recorder
}

func (f fakeBackoff) Run(ctx context.Context, expectFailure bool) {
	if expectFailure {
		f.rec.add("backoff_expect_failure")
		return
	}
	f.rec.add("backoff_expect_success")
}

func (f fakeBackoff) Cancel() { f.rec.add("cancel_backoff") }

type fakeSignal struct {
	rec  *recorder
	mu   sync.Mutex
	sink func(state.Event)
	err  error
}

func (f *fakeSignal) Subscribe(sink func(state.Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sink != nil {
		return nil
	}
	f.sink = sink
	f.rec.add("subscribe")
	return nil
}

func (f *fakeSignal) Unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = nil
	f.rec.add("unsubscribe")
}

func (f *fakeSignal) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink != nil
}

type fakeHold struct {
	rec        *recorder
	mu         sync.Mutex
	held       bool
	acquireErr error
}

func (f *fakeHold) Acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return f.acquireErr
	}
	if f.held {
		return nil
	}
	f.held = true
	f.rec.add("acquire")
	return nil
}

func (f *fakeHold) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	f.rec.add("release")
	return nil
}

func (f *fakeHold) isHeld() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held
}

type fixture struct {
	rec     *recorder
	probes  *fakeProbes
	signal  *fakeSignal
	hold    *fakeHold
	machine *Machine
}

func newFixture() *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:    rec,
		probes: &fakeProbes{rec: rec},
		signal: &fakeSignal{rec: rec},
		hold:   &fakeHold{rec: rec},
	}
	f.machine = New(Deps{
		Indicator: fakeIndicator{rec: rec},
		Probes:    f.probes,
		Backoff:   fakeBackoff{rec: rec},
		Signal:    f.signal,
		WakeHold:  f.hold,
	})
	return f
}

// feed handles events synchronously on the calling goroutine.
func (f *fixture) feed(events ...state.Event) {
	for _, ev := range events {
		f.machine.handle(ev)
	}
}
