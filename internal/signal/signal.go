package signal

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jackpal/gateway"

	"github.com/doridoridoriand/netwatch/internal/log"
	"github.com/doridoridoriand/netwatch/internal/state"
)

// AvailabilityFunc reports whether the host currently has a usable network.
// An error means availability could not be determined at all.
type AvailabilityFunc func() (bool, error)

// Watcher polls OS network availability and forwards transitions.
type Watcher struct {
	mu        sync.Mutex
	available AvailabilityFunc
	poll      time.Duration
	clock     clock.Clock
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) {
		w.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher builds an unsubscribed watcher around available.
func NewWatcher(available AvailabilityFunc, poll time.Duration, opts ...Option) *Watcher {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	w := &Watcher{
		available: available,
		poll:      poll,
		clock:     clock.New(),
		logger:    log.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Subscribe starts forwarding availability transitions to sink, which must
// not block. The watcher goroutine reads the baseline first and does not
// report it. Subscribing twice is a no-op.
func (w *Watcher) Subscribe(sink func(state.Event)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}
	if w.available == nil {
		return fmt.Errorf("no network availability source")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		defer close(done)
		w.watch(ctx, sink)
	}()
	return nil
}

// Unsubscribe stops the watcher and returns once no further events can be sent.
func (w *Watcher) Unsubscribe() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Subscribed reports whether a watcher goroutine is running.
func (w *Watcher) Subscribed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) watch(ctx context.Context, sink func(state.Event)) {
	last, known := w.baseline()
	for {
		timer := w.clock.Timer(w.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !known {
			last, known = w.baseline()
			continue
		}

		current, err := w.available()
		if err != nil {
			w.logger.Debug("network availability check failed", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		if current == last || ctx.Err() != nil {
			continue
		}
		last = current

		event := state.EventSignalUnavailable
		if current {
			event = state.EventSignalAvailable
		}
		w.logger.Info("network availability changed", map[string]interface{}{
			"available": current,
		})
		sink(event)
	}
}

// baseline reads the availability that later polls are compared against.
func (w *Watcher) baseline() (bool, bool) {
	available, err := w.available()
	if err != nil {
		w.logger.Warn("network availability unknown", map[string]interface{}{
			"error": err.Error(),
		})
		return false, false
	}
	return available, true
}

// SystemAvailability reports the host as online when some non-loopback
// interface is up with a global unicast address and, when requireGateway is
// set, a default gateway can be discovered.
func SystemAvailability(requireGateway bool) AvailabilityFunc {
	return func() (bool, error) {
		ifaces, err := net.Interfaces()
		if err != nil {
			return false, err
		}
		if !hasUsableInterface(ifaces, interfaceAddrs) {
			return false, nil
		}
		if !requireGateway {
			return true, nil
		}
		// No discoverable default route means no way out.
		ip, err := gateway.DiscoverGateway()
		return err == nil && ip != nil, nil
	}
}

func interfaceAddrs(iface net.Interface) ([]net.Addr, error) {
	return iface.Addrs()
}

func hasUsableInterface(ifaces []net.Interface, addrs func(net.Interface) ([]net.Addr, error)) bool {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		list, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, addr := range list {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && ip.IsGlobalUnicast() {
				return true
			}
		}
	}
	return false
}
