package state

import (
	"sync"

	"github.com/mtlprog/tracker/internal/metrics"
)

// Store owns the current State. All writes go through it and are serialized;
// at most one load transition is in flight at a time.
type Store struct {
	mu       sync.Mutex
	current  State
	inFlight bool
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	return &Store{current: initial}
}

// Current returns the current state.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update replaces the current state with fn's result and returns it.
func (s *Store) Update(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(fn(s.current))
	return s.current
}

// Begin starts a load transition. It fails when one is already in flight or
// when start rejects the current state; otherwise the state start returns is
// stored and the caller must call Finish.
func (s *Store) Begin(start func(State) (State, bool)) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.current, false
	}
	next, ok := start(s.current)
	if !ok {
		return s.current, false
	}
	s.inFlight = true
	s.set(next)
	return s.current, true
}

// Finish completes the transition started by Begin.
func (s *Store) Finish(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.set(fn(s.current))
	return s.current
}

func (s *Store) set(next State) {
	if next.Status != s.current.Status {
		metrics.StateTransitionsTotal.WithLabelValues(string(next.Status)).Inc()
	}
	s.current = next
}
