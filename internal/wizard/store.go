package wizard

import "sync"

// Listener is notified with the new state after every dispatch.
type Listener func(State)

// Store owns the draft state. Dispatch is the only mutation path.
type Store struct {
	// notify serialises dispatches end to end so listeners see snapshots in
	// the order they were reduced.
	notify    sync.Mutex
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store seeded with InitialState.
func NewStore() *Store {
	return NewStoreFrom(InitialState())
}

// NewStoreFrom creates a store seeded with a restored snapshot. Derived
// fields are recomputed so a stale persisted percentage cannot leak in.
func NewStoreFrom(initial State) *Store {
	seed := initial.Clone()
	if seed.TotalSteps <= 0 {
		seed.TotalSteps = TotalSteps
	}
	seed.CurrentStep = clampStep(seed.CurrentStep, seed.TotalSteps)
	seed.CompletionPercentage = seed.ComputeCompletion()
	return &Store{state: seed, listeners: map[int]Listener{}}
}

// Dispatch applies an action and returns the resulting state. It may be
// called from any goroutine, but not from inside a listener.
func (s *Store) Dispatch(a Action) State {
	s.notify.Lock()
	defer s.notify.Unlock()
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(snapshot)
	}
	return snapshot
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// IsStepCompleted evaluates step n against the current state.
func (s *Store) IsStepCompleted(n int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsStepCompleted(n)
}

// IsStepAccessible reports whether step n can be navigated to.
func (s *Store) IsStepAccessible(n int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsStepAccessible(n)
}

// StepStatus classifies step n for the navigation bar.
func (s *Store) StepStatus(n int) StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.StepStatus(n)
}
