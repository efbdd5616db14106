package timer

import (
	"sync"
	"time"
)

// Manual is a Debouncer that only fires when told to. Tests use it to step
// through time-dependent behaviour deterministically.
type Manual struct {
	After time.Duration

	mu       sync.Mutex
	pending  func()
	triggers int
}

func NewManual(after time.Duration) *Manual {
	return &Manual{After: after}
}

func (m *Manual) Trigger(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = f
	m.triggers++
}

func (m *Manual) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

func (m *Manual) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// Triggers counts every Trigger call, including replaced ones.
func (m *Manual) Triggers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggers
}

// Fire runs the pending function, if any, and reports whether it ran.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	f := m.pending
	m.pending = nil
	m.mu.Unlock()
	if f == nil {
		return false
	}
	f()
	return true
}

// ManualSet is a Factory that remembers every Manual it creates, in order.
type ManualSet struct {
	mu      sync.Mutex
	created []*Manual
}

func (s *ManualSet) New(after time.Duration) Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := NewManual(after)
	s.created = append(s.created, m)
	return m
}

func (s *ManualSet) Get(i int) *Manual {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created[i]
}

func (s *ManualSet) Last() *Manual {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created[len(s.created)-1]
}

func (s *ManualSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}
