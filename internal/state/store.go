package state

import (
	"sync"
	"time"
)

const defaultSubscriberBuffer = 4

// Store holds the latest published Snapshot and fans it out to subscribers.
// Only the state machine publishes; everyone else reads copies.
type Store struct {
	mu          sync.RWMutex
	current     Snapshot
	subscribers map[int]chan Snapshot
	nextID      int
	closed      bool
}

// NewStore returns a store whose initial snapshot is Disabled.
func NewStore() *Store {
	return &Store{
		current:     Snapshot{State: Disabled, Since: time.Now()},
		subscribers: make(map[int]chan Snapshot),
	}
}

// Publish replaces the current snapshot and notifies subscribers without blocking.
// A slow subscriber loses intermediate snapshots but always receives the latest one.
func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = snap
	for _, ch := range s.subscribers {
		offerLatest(ch, snap)
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Current returns only the current state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.State
}

// Subscribe registers a one-way snapshot channel. The current snapshot is delivered first.
// The returned function detaches and closes the channel; it is safe to call more than once.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, defaultSubscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch
	ch <- s.current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if existing, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(existing)
			}
		})
	}
}

// Close detaches every subscriber. Later publishes are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func offerLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
