package game

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts time lookup so scoring windows and challenge timing are
// testable without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Timer is a handle to a scheduled callback. Stop is the only cancellation
// primitive; in-progress callbacks are never interrupted.
type Timer interface {
	Stop() bool
}

// Scheduler schedules cancellable callbacks. The engine's only form of
// concurrency is time-based suspension through this seam, which keeps the
// core algorithms synchronous and testable.
type Scheduler interface {
	Clock
	Schedule(d time.Duration, fn func()) Timer
}

// TimerScheduler is the production scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) Now() time.Time { return time.Now() }

func (TimerScheduler) Schedule(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ManualScheduler is a test scheduler whose clock only moves when told to.
// Scheduled callbacks fire synchronously from Advance, in deadline order.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	pending []*manualTimer
	nextID  int
}

type manualTimer struct {
	owner    *ManualScheduler
	id       int
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler creates a manual scheduler starting at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) Schedule(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &manualTimer{
		owner:    s,
		id:       s.nextID,
		deadline: s.now.Add(d),
		fn:       fn,
	}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock forward by d, firing due callbacks in deadline
// order. The clock steps through each deadline as it fires, so callbacks
// that schedule again chain within the same advance. Callbacks run with
// the lock released.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		t := s.popDue(target)
		if t == nil {
			break
		}
		s.mu.Lock()
		if t.deadline.After(s.now) {
			s.now = t.deadline
		}
		s.mu.Unlock()
		t.fn()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

func (s *ManualScheduler) popDue(target time.Time) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].deadline.Equal(s.pending[j].deadline) {
			return s.pending[i].id < s.pending[j].id
		}
		return s.pending[i].deadline.Before(s.pending[j].deadline)
	})
	for i, t := range s.pending {
		if t.stopped || t.fired {
			continue
		}
		if t.deadline.After(target) {
			return nil
		}
		t.fired = true
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		return t
	}
	return nil
}
