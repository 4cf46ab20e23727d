package conn

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type pendingClose struct {
	timer *clock.Timer
}

// Scheduler owns at most one delayed-close timer per resource.
type Scheduler struct {
	clock   clock.Clock
	mu      sync.Mutex
	pending map[ResourceID]*pendingClose
}

// NewScheduler creates a scheduler driven by clk. A nil clk uses the wall clock.
func NewScheduler(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clock:   clk,
		pending: make(map[ResourceID]*pendingClose),
	}
}

// Schedule arms a one-shot timer for id, replacing any timer already armed
// for it. onFire runs on its own goroutine, at most once, after the timer
// entry has been removed.
func (s *Scheduler) Schedule(id ResourceID, delay time.Duration, onFire func(ResourceID)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[id]; ok {
		prev.timer.Stop()
		delete(s.pending, id)
	}

	p := &pendingClose{}
	s.pending[id] = p
	p.timer = s.clock.AfterFunc(delay, func() {
		s.fire(id, p, onFire)
	})
}

func (s *Scheduler) fire(id ResourceID, p *pendingClose, onFire func(ResourceID)) {
	s.mu.Lock()
	if s.pending[id] != p {
		// Cancelled or replaced after the clock already fired.
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	onFire(id)
}

// Cancel stops and forgets the timer for id. It reports whether one was armed.
func (s *Scheduler) Cancel(id ResourceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, id)
	return true
}

// State reports whether a timer is armed for id.
func (s *Scheduler) State(id ResourceID) TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; ok {
		return TimerArmed
	}
	return TimerNone
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every armed timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}
