package monitor

import (
	"fmt"

	"github.com/doridoridoriand/netwatch/internal/state"
)

// EffectKind names a side effect requested by a transition.
type EffectKind int

const (
	AcquireWakeHold EffectKind = iota
	StartProbing
	SubscribeSignal
	ShowMonitoring
	StopProbing
	CancelBackoff
	ReleaseWakeHold
	UnsubscribeSignal
	HideIndicator
	ShowOffline
	ShowOnline
	RunBackoff
)

var effectNames = map[EffectKind]string{
	AcquireWakeHold:   "acquire_wake_hold",
	StartProbing:      "start_probing",
	SubscribeSignal:   "subscribe_signal",
	ShowMonitoring:    "show_monitoring",
	StopProbing:       "stop_probing",
	CancelBackoff:     "cancel_backoff",
	ReleaseWakeHold:   "release_wake_hold",
	UnsubscribeSignal: "unsubscribe_signal",
	HideIndicator:     "hide_indicator",
	ShowOffline:       "show_offline",
	ShowOnline:        "show_online",
	RunBackoff:        "run_backoff",
}

func (k EffectKind) String() string {
	if name, ok := effectNames[k]; ok {
		return name
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// Effect is one side effect. ExpectFailure only applies to RunBackoff.
type Effect struct {
	Kind          EffectKind
	ExpectFailure bool
}

func (e Effect) String() string {
	if e.Kind == RunBackoff {
		return fmt.Sprintf("%s(expect_failure=%v)", e.Kind, e.ExpectFailure)
	}
	return e.Kind.String()
}

var (
	startEffects = []Effect{
		{Kind: AcquireWakeHold},
		{Kind: StartProbing},
		{Kind: SubscribeSignal},
		{Kind: ShowMonitoring},
	}
	stopEffects = []Effect{
		{Kind: StopProbing},
		{Kind: CancelBackoff},
		{Kind: ReleaseWakeHold},
		{Kind: UnsubscribeSignal},
		{Kind: HideIndicator},
	}
)

// Transition returns the next state and the effects to apply, in order.
// Pairs without a row return the current state and no effects.
func Transition(current state.State, event state.Event) (state.State, []Effect) {
	switch current {
	case state.Disabled:
		if event == state.EventStart {
			return state.WaitingForOffline, clone(startEffects)
		}
	case state.WaitingForOffline:
		switch event {
		case state.EventStop:
			return state.Disabled, clone(stopEffects)
		case state.EventProbeFailed:
			return state.WaitingForOnline, []Effect{{Kind: ShowOffline}}
		case state.EventSignalUnavailable:
			return current, []Effect{{Kind: RunBackoff, ExpectFailure: true}}
		}
	case state.WaitingForOnline:
		switch event {
		case state.EventStop:
			return state.Disabled, clone(stopEffects)
		case state.EventProbeSucceeded:
			return state.WaitingForOffline, []Effect{{Kind: ShowOnline}}
		case state.EventSignalAvailable:
			return current, []Effect{{Kind: RunBackoff, ExpectFailure: false}}
		}
	}
	return current, nil
}

func clone(effects []Effect) []Effect {
	out := make([]Effect, len(effects))
	copy(out, effects)
	return out
}
