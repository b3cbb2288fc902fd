package state

import (
	"fmt"
	"time"
)

// State is the monitor's position in the Disabled -> WaitingForOffline <-> WaitingForOnline cycle.
type State int

const (
	// Disabled means monitoring is inactive. It is the initial state.
	Disabled State = iota
	// WaitingForOffline means connectivity is believed up and the monitor waits for loss.
	WaitingForOffline
	// WaitingForOnline means connectivity is believed down and the monitor waits for recovery.
	WaitingForOnline
)

var stateNames = map[State]string{
	Disabled:          "disabled",
	WaitingForOffline: "waiting_for_offline",
	WaitingForOnline:  "waiting_for_online",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Active reports whether monitoring is running in this state.
func (s State) Active() bool {
	return s == WaitingForOffline || s == WaitingForOnline
}

// MarshalText renders the state name for JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for value, name := range stateNames {
		if name == string(text) {
			*s = value
			return nil
		}
	}
	return fmt.Errorf("unknown monitor state: %q", string(text))
}

// Event is an input to the state machine.
type Event int

const (
	EventStart Event = iota
	EventStop
	EventProbeSucceeded
	EventProbeFailed
	EventSignalAvailable
	EventSignalUnavailable
)

var eventNames = map[Event]string{
	EventStart:             "start",
	EventStop:              "stop",
	EventProbeSucceeded:    "probe_succeeded",
	EventProbeFailed:       "probe_failed",
	EventSignalAvailable:   "signal_available",
	EventSignalUnavailable: "signal_unavailable",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ProbeEvent maps a probe outcome to its event.
func ProbeEvent(success bool) Event {
	if success {
		return EventProbeSucceeded
	}
	return EventProbeFailed
}

// States lists every state in declaration order.
func States() []State {
	return []State{Disabled, WaitingForOffline, WaitingForOnline}
}

// Events lists every event in declaration order.
func Events() []Event {
	return []Event{
		EventStart,
		EventStop,
		EventProbeSucceeded,
		EventProbeFailed,
		EventSignalAvailable,
		EventSignalUnavailable,
	}
}

// Snapshot is a read-only copy of the monitor's observable state.
type Snapshot struct {
	State       State      `json:"state"`
	Session     string     `json:"session,omitempty"`
	Since       time.Time  `json:"since"`
	Transitions int        `json:"transitions"`
	LastProbeOK bool       `json:"last_probe_ok"`
	LastProbeAt *time.Time `json:"last_probe_at,omitempty"`
	WakeHeld    bool       `json:"wake_held"`
	Degraded    bool       `json:"degraded"`
}
