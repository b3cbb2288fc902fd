package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/doridoridoriand/netwatch/internal/log"
	"github.com/doridoridoriand/netwatch/internal/state"
)

// Indicator displays the monitor status to the user.
type Indicator interface {
	ShowMonitoring()
	ShowOnline()
	ShowOffline()
	Hide()
}

// ProbeLoop runs the periodic probe.
type ProbeLoop interface {
	Start(ctx context.Context)
	Stop()
}

// Backoff runs one escalating probe sequence at a time.
type Backoff interface {
	Run(ctx context.Context, expectFailure bool)
	Cancel()
}

// Signal reports OS network availability changes.
type Signal interface {
	Subscribe(sink func(state.Event)) error
	Unsubscribe()
}

// WakeHold keeps the host awake while monitoring.
type WakeHold interface {
	Acquire() error
	Release() error
}

// Observer is notified of processed events and state changes.
type Observer interface {
	ObserveEvent(event state.Event, handled bool)
	ObserveTransition(from, to state.State, event state.Event)
	ObserveSnapshot(snap state.Snapshot)
}

// Deps are the collaborators driven by the machine. Nil fields are no-ops.
type Deps struct {
	Indicator Indicator
	Probes    ProbeLoop
	Backoff   Backoff
	Signal    Signal
	WakeHold  WakeHold
	Observer  Observer
	Logger    *log.Logger
	Clock     clock.Clock
}

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("monitor already running")

// Machine owns the monitor state. Events are queued by Submit and handled in
// order by a single goroutine inside Run; no other code mutates the state.
type Machine struct {
	deps  Deps
	store *state.Store

	qmu     sync.Mutex
	queue   []state.Event
	wake    chan struct{}
	closed  bool
	running bool

	// Owned by the loop goroutine.
	runCtx context.Context
	snap   state.Snapshot
}

// New builds a machine in the Disabled state.
func New(deps Deps) *Machine {
	if deps.Logger == nil {
		deps.Logger = log.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	store := state.NewStore()
	snap := store.Snapshot()
	snap.Since = deps.Clock.Now()
	store.Publish(snap)
	return &Machine{
		deps:   deps,
		store:  store,
		wake:   make(chan struct{}, 1),
		runCtx: context.Background(),
		snap:   snap,
	}
}

// Submit enqueues an event without blocking. It reports false once the
// machine is closed.
func (m *Machine) Submit(event state.Event) bool {
	m.qmu.Lock()
	if m.closed {
		m.qmu.Unlock()
		return false
	}
	m.queue = append(m.queue, event)
	m.qmu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// Start requests monitoring.
func (m *Machine) Start() bool {
	return m.Submit(state.EventStart)
}

// Stop requests the end of monitoring.
func (m *Machine) Stop() bool {
	return m.Submit(state.EventStop)
}

// State returns the last published state.
func (m *Machine) State() state.State {
	return m.store.Current()
}

// Snapshot returns a copy of the last published snapshot.
func (m *Machine) Snapshot() state.Snapshot {
	return m.store.Snapshot()
}

// Subscribe returns a stream of snapshots starting with the current one.
func (m *Machine) Subscribe() (<-chan state.Snapshot, func()) {
	return m.store.Subscribe()
}

// Run handles events until ctx is done, then tears monitoring down as if
// Stop had been processed.
func (m *Machine) Run(ctx context.Context) error {
	m.qmu.Lock()
	if m.running {
		m.qmu.Unlock()
		return ErrAlreadyRunning
	}
	if m.closed {
		m.qmu.Unlock()
		return fmt.Errorf("monitor closed")
	}
	m.running = true
	m.qmu.Unlock()

	m.runCtx = ctx
	defer func() {
		m.qmu.Lock()
		m.running = false
		m.qmu.Unlock()
	}()

	for {
		for _, event := range m.drain() {
			if ctx.Err() != nil {
				break
			}
			m.handle(event)
		}
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case <-m.wake:
		}
	}
}

// Close drops further submissions and detaches snapshot subscribers.
func (m *Machine) Close() {
	m.qmu.Lock()
	m.closed = true
	m.queue = nil
	m.qmu.Unlock()
	m.store.Close()
}

func (m *Machine) drain() []state.Event {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	events := m.queue
	m.queue = nil
	return events
}

func (m *Machine) shutdown() {
	if !m.snap.State.Active() {
		return
	}
	m.deps.Logger.Info("monitor shutting down", map[string]interface{}{
		"state": m.snap.State.String(),
	})
	// ctx is already done; teardown must not depend on it.
	m.runCtx = context.Background()
	m.handle(state.EventStop)
}

func (m *Machine) handle(event state.Event) {
	from := m.snap.State
	to, effects := Transition(from, event)
	handled := to != from || len(effects) > 0

	if m.deps.Observer != nil {
		m.deps.Observer.ObserveEvent(event, handled)
	}

	next := m.snap
	if from.Active() && (event == state.EventProbeSucceeded || event == state.EventProbeFailed) {
		next.LastProbeOK = event == state.EventProbeSucceeded
		at := m.deps.Clock.Now()
		next.LastProbeAt = &at
	}

	if !handled {
		m.deps.Logger.Debug("event ignored", map[string]interface{}{
			"state": from.String(),
			"event": event.String(),
		})
		m.publish(next)
		return
	}

	if from == state.Disabled && to.Active() {
		next.Session = uuid.NewString()
		next.Degraded = false
	}
	if to != from {
		next.State = to
		next.Since = m.deps.Clock.Now()
		next.Transitions++
		m.deps.Logger.LogTransition(from.String(), to.String(), event.String(), next.Session)
		if m.deps.Observer != nil {
			m.deps.Observer.ObserveTransition(from, to, event)
		}
	}

	var errs error
	for _, effect := range effects {
		errs = multierr.Append(errs, m.apply(effect, &next))
	}
	if errs != nil {
		next.Degraded = next.State.Active()
		m.deps.Logger.Warn("monitor side effects failed", map[string]interface{}{
			"event":  event.String(),
			"errors": len(multierr.Errors(errs)),
			"error":  errs.Error(),
		})
	}

	if to == state.Disabled {
		next.Session = ""
		next.Degraded = false
	}
	m.publish(next)
}

func (m *Machine) apply(effect Effect, next *state.Snapshot) error {
	switch effect.Kind {
	case AcquireWakeHold:
		if m.deps.WakeHold == nil {
			return nil
		}
		if err := m.deps.WakeHold.Acquire(); err != nil {
			return err
		}
		next.WakeHeld = true
	case ReleaseWakeHold:
		if m.deps.WakeHold == nil || !next.WakeHeld {
			return nil
		}
		next.WakeHeld = false
		return m.deps.WakeHold.Release()
	case StartProbing:
		if m.deps.Probes != nil {
			m.deps.Probes.Start(m.runCtx)
		}
	case StopProbing:
		if m.deps.Probes != nil {
			m.deps.Probes.Stop()
		}
	case SubscribeSignal:
		if m.deps.Signal != nil {
			if err := m.deps.Signal.Subscribe(m.sink); err != nil {
				return fmt.Errorf("subscribe network signal: %w", err)
			}
		}
	case UnsubscribeSignal:
		if m.deps.Signal != nil {
			m.deps.Signal.Unsubscribe()
		}
	case RunBackoff:
		if m.deps.Backoff != nil {
			m.deps.Backoff.Run(m.runCtx, effect.ExpectFailure)
		}
	case CancelBackoff:
		if m.deps.Backoff != nil {
			m.deps.Backoff.Cancel()
		}
	case ShowMonitoring:
		m.indicate(Indicator.ShowMonitoring)
	case ShowOnline:
		m.indicate(Indicator.ShowOnline)
	case ShowOffline:
		m.indicate(Indicator.ShowOffline)
	case HideIndicator:
		m.indicate(Indicator.Hide)
	}
	return nil
}

func (m *Machine) sink(event state.Event) {
	m.Submit(event)
}

func (m *Machine) indicate(fn func(Indicator)) {
	if m.deps.Indicator != nil {
		fn(m.deps.Indicator)
	}
}

func (m *Machine) publish(snap state.Snapshot) {
	m.snap = snap
	m.store.Publish(snap)
	if m.deps.Observer != nil {
		m.deps.Observer.ObserveSnapshot(snap)
	}
}

// Uptime returns how long the machine has been in its current state.
func (m *Machine) Uptime() time.Duration {
	return m.deps.Clock.Since(m.store.Snapshot().Since)
}
