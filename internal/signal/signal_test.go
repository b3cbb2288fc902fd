package signal

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/doridoridoriand/netwatch/internal/state"
)

type recordingClock struct {
	*clock.Mock
	timers chan time.Duration
}

func newRecordingClock() *recordingClock {
	return &recordingClock{Mock: clock.NewMock(), timers: make(chan time.Duration, 32)}
}

func (c *recordingClock) Timer(d time.Duration) *clock.Timer {
	t := c.Mock.Timer(d)
	c.timers <- d
	return t
}

// tick waits for the watcher to arm its timer and fires it.
func (c *recordingClock) tick(t *testing.T) {
	t.Helper()
	select {
	case d := <-c.timers:
		c.Add(d)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for poll timer")
	}
}

type scriptedAvailability struct {
	mu     sync.Mutex
	values []bool
	last   bool
	err    error
}

func (s *scriptedAvailability) check() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if len(s.values) == 0 {
		return s.last, nil
	}
	v := s.values[0]
	s.values = s.values[1:]
	s.last = v
	return v, nil
}

func collect() (func(state.Event), chan state.Event) {
	ch := make(chan state.Event, 16)
	return func(ev state.Event) { ch <- ev }, ch
}

func expectEvent(t *testing.T, ch chan state.Event, want state.Event) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func expectNoEvent(t *testing.T, ch chan state.Event) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected event %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherEmitsOnlyTransitions(t *testing.T) {
	clk := newRecordingClock()
	avail := &scriptedAvailability{values: []bool{true, true, false, false, true}, last: true}
	w := NewWatcher(avail.check, time.Second, WithClock(clk))
	sink, events := collect()

	if err := w.Subscribe(sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer w.Unsubscribe()

	clk.tick(t) // true, unchanged
	expectNoEvent(t, events)
	clk.tick(t) // false
	expectEvent(t, events, state.EventSignalUnavailable)
	clk.tick(t) // false, unchanged
	expectNoEvent(t, events)
	clk.tick(t) // true
	expectEvent(t, events, state.EventSignalAvailable)
}

func TestWatcherBaselineIsNotReported(t *testing.T) {
	clk := newRecordingClock()
	avail := &scriptedAvailability{last: false}
	w := NewWatcher(avail.check, time.Second, WithClock(clk))
	sink, events := collect()

	if err := w.Subscribe(sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer w.Unsubscribe()

	clk.tick(t)
	expectNoEvent(t, events)
}

func TestWatcherSubscribeIsIdempotent(t *testing.T) {
	clk := newRecordingClock()
	avail := &scriptedAvailability{values: []bool{true, false}, last: false}
	w := NewWatcher(avail.check, time.Second, WithClock(clk))
	sink, events := collect()

	if err := w.Subscribe(sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := w.Subscribe(sink); err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	defer w.Unsubscribe()

	clk.tick(t)
	expectEvent(t, events, state.EventSignalUnavailable)
	expectNoEvent(t, events)
}

func TestWatcherUnsubscribeStopsEvents(t *testing.T) {
	clk := newRecordingClock()
	avail := &scriptedAvailability{values: []bool{true}, last: false}
	w := NewWatcher(avail.check, time.Second, WithClock(clk))
	sink, events := collect()

	if err := w.Subscribe(sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-clk.timers
	w.Unsubscribe()
	if w.Subscribed() {
		t.Fatalf("expected watcher unsubscribed")
	}
	clk.Add(time.Minute)
	expectNoEvent(t, events)
	w.Unsubscribe()
}

func TestWatcherSubscribeDoesNotWaitForAvailability(t *testing.T) {
	release := make(chan struct{})
	blocking := func() (bool, error) {
		<-release
		return true, nil
	}
	w := NewWatcher(blocking, time.Second, WithClock(newRecordingClock()))
	sink, _ := collect()

	returned := make(chan error, 1)
	go func() {
		returned <- w.Subscribe(sink)
	}()
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatalf("subscribe blocked on the availability check")
	}
	close(release)
	w.Unsubscribe()
}

func TestWatcherRetriesUnknownBaseline(t *testing.T) {
	clk := newRecordingClock()
	avail := &scriptedAvailability{err: errors.New("netlink unavailable")}
	w := NewWatcher(avail.check, time.Second, WithClock(clk))
	sink, events := collect()

	if err := w.Subscribe(sink); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer w.Unsubscribe()

	d := <-clk.timers
	avail.mu.Lock()
	avail.err = nil
	avail.values = []bool{false, true}
	avail.mu.Unlock()
	clk.Add(d) // baseline false
	expectNoEvent(t, events)

	clk.tick(t) // true
	expectEvent(t, events, state.EventSignalAvailable)
}

func TestWatcherSubscribeWithoutSource(t *testing.T) {
	w := NewWatcher(nil, time.Second)
	sink, _ := collect()
	if err := w.Subscribe(sink); err == nil {
		t.Fatalf("expected subscribe error")
	}
	if w.Subscribed() {
		t.Fatalf("expected no watcher after failed subscribe")
	}
}

func TestHasUsableInterface(t *testing.T) {
	up := net.Interface{Name: "eth0", Flags: net.FlagUp}
	down := net.Interface{Name: "eth1"}
	lo := net.Interface{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}

	addrs := map[string][]net.Addr{
		"eth0": {&net.IPNet{IP: net.ParseIP("192.0.2.10"), Mask: net.CIDRMask(24, 32)}},
		"eth1": {&net.IPNet{IP: net.ParseIP("192.0.2.11"), Mask: net.CIDRMask(24, 32)}},
		"lo":   {&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)}},
	}
	lookup := func(iface net.Interface) ([]net.Addr, error) {
		return addrs[iface.Name], nil
	}

	if !hasUsableInterface([]net.Interface{lo, down, up}, lookup) {
		t.Fatalf("expected eth0 to count as usable")
	}
	if hasUsableInterface([]net.Interface{lo, down}, lookup) {
		t.Fatalf("expected loopback and down interfaces to be ignored")
	}

	linkLocal := func(net.Interface) ([]net.Addr, error) {
		return []net.Addr{&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}}, nil
	}
	if hasUsableInterface([]net.Interface{up}, linkLocal) {
		t.Fatalf("expected link-local only interface to be unusable")
	}
}
