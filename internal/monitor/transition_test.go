package monitor

import (
	"reflect"
	"testing"

	"github.com/doridoridoriand/netwatch/internal/state"
)

func TestTransitionTable(t *testing.T) {
	stop := []Effect{{Kind: StopProbing}, {Kind: CancelBackoff}, {Kind: ReleaseWakeHold}, {Kind: UnsubscribeSignal}, {Kind: HideIndicator}}
	start := []Effect{{Kind: AcquireWakeHold}, {Kind: StartProbing}, {Kind: SubscribeSignal}, {Kind: ShowMonitoring}}

	type row struct {
		next    state.State
		effects []Effect
	}
	table := map[state.State]map[state.Event]row{
		state.Disabled: {
			state.EventStart: {state.WaitingForOffline, start},
		},
		state.WaitingForOffline: {
			state.EventStop:              {state.Disabled, stop},
			state.EventProbeFailed:       {state.WaitingForOnline, []Effect{{Kind: ShowOffline}}},
			state.EventSignalUnavailable: {state.WaitingForOffline, []Effect{{Kind: RunBackoff, ExpectFailure: true}}},
		},
		state.WaitingForOnline: {
			state.EventStop:            {state.Disabled, stop},
			state.EventProbeSucceeded:  {state.WaitingForOffline, []Effect{{Kind: ShowOnline}}},
			state.EventSignalAvailable: {state.WaitingForOnline, []Effect{{Kind: RunBackoff, ExpectFailure: false}}},
		},
	}

	for _, s := range state.States() {
		for _, ev := range state.Events() {
			want, ok := table[s][ev]
			if !ok {
				want = row{next: s}
			}
			next, effects := Transition(s, ev)
			if next != want.next {
				t.Fatalf("%s + %s: expected state %s, got %s", s, ev, want.next, next)
			}
			if len(effects) != len(want.effects) || (len(effects) > 0 && !reflect.DeepEqual(effects, want.effects)) {
				t.Fatalf("%s + %s: expected effects %v, got %v", s, ev, want.effects, effects)
			}
		}
	}
}

func TestTransitionReturnsFreshSlices(t *testing.T) {
	_, first := Transition(state.Disabled, state.EventStart)
	first[0].Kind = HideIndicator
	_, second := Transition(state.Disabled, state.EventStart)
	if second[0].Kind != AcquireWakeHold {
		t.Fatalf("expected shared effect table to be unaffected, got %v", second)
	}
}

func TestEffectString(t *testing.T) {
	if got := (Effect{Kind: RunBackoff, ExpectFailure: true}).String(); got != "run_backoff(expect_failure=true)" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := (Effect{Kind: HideIndicator}).String(); got != "hide_indicator" {
		t.Fatalf("unexpected string %q", got)
	}
}
