package store

import (
	"sync"
	"time"
)

// saver collapses bursts of mutations into a single deferred save. It
// holds at most one pending timer; scheduling again resets the window
// instead of accumulating timers.
type saver struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func newSaver(delay time.Duration, fn func()) *saver {
	return &saver{delay: delay, fn: fn}
}

// schedule arms (or re-arms) the timer. The save runs delay after the
// most recent call.
func (s *saver) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fn)
}

// cancel stops any pending save.
func (s *saver) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
