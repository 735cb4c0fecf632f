package pilot

import "sync"

// State is the process-wide mutual exclusion for bulk generation runs.
// Auto-Pilot and Command Mode share one instance so they can never run
// concurrently.
type State struct {
	mu      sync.Mutex
	running bool
	label   string
}

// NewState creates an idle run state.
func NewState() *State {
	return &State{}
}

// TryAcquire marks the state RUNNING and returns true, or returns false
// when another run holds it.
func (s *State) TryAcquire(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.label = label
	return true
}

// ForceAcquire marks the state RUNNING unconditionally, displacing any
// stale holder. Used by forced Auto-Pilot starts.
func (s *State) ForceAcquire(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.label = label
}

// Release clears the RUNNING flag. Safe to call when idle.
func (s *State) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.label = ""
}

// Active reports whether a run is in progress and which one.
func (s *State) Active() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.label
}
