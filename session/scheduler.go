package session

import (
	"sync"
	"time"

	"facegauge/timeutil"
)

// Cancel stops a scheduled callback. It is safe to call more than once.
type Cancel func()

// Scheduler runs callbacks on the session's logical thread.
type Scheduler interface {
	Every(d time.Duration, fn func()) Cancel
	After(d time.Duration, fn func()) Cancel
}

// LoopScheduler turns clock ticks into closures posted to the event loop.
// Callbacks never run concurrently with each other or with other loop work.
type LoopScheduler struct {
	clock timeutil.Clock
	post  func(func())
}

// NewLoopScheduler creates a scheduler that hands callbacks to post.
func NewLoopScheduler(clock timeutil.Clock, post func(func())) *LoopScheduler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &LoopScheduler{clock: clock, post: post}
}

func (s *LoopScheduler) Every(d time.Duration, fn func()) Cancel {
	ticker := s.clock.NewTicker(d)
	h := newHandle(ticker.Stop)
	go func() {
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C():
				s.post(h.guard(fn))
			}
		}
	}()
	return h.cancel
}

func (s *LoopScheduler) After(d time.Duration, fn func()) Cancel {
	timer := s.clock.NewTimer(d)
	h := newHandle(func() { timer.Stop() })
	go func() {
		select {
		case <-h.done:
		case <-timer.C():
			s.post(h.guard(fn))
		}
	}()
	return h.cancel
}

type handle struct {
	mu       sync.Mutex
	canceled bool
	done     chan struct{}
	stop     func()
}

func newHandle(stop func()) *handle {
	return &handle{done: make(chan struct{}), stop: stop}
}

func (h *handle) cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.canceled {
		return
	}
	h.canceled = true
	h.stop()
	close(h.done)
}

// guard drops a callback that was already queued when cancel ran.
func (h *handle) guard(fn func()) func() {
	return func() {
		h.mu.Lock()
		canceled := h.canceled
		h.mu.Unlock()
		if !canceled {
			fn()
		}
	}
}
