package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facegauge/timeutil"
)

func nextPosted(t *testing.T, loop <-chan func()) func() {
	t.Helper()
	select {
	case fn := <-loop:
		return fn
	case <-time.After(time.Second):
		t.Fatal("nothing posted to loop")
		return nil
	}
}

func waitForWaiters(t *testing.T, clock *timeutil.MockClock, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return clock.Waiters() == n }, time.Second, time.Millisecond)
}

func TestLoopSchedulerEvery(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	loop := make(chan func(), 4)
	s := NewLoopScheduler(clock, func(fn func()) { loop <- fn })

	calls := 0
	cancel := s.Every(time.Second, func() { calls++ })
	waitForWaiters(t, clock, 1)

	clock.Advance(time.Second)
	nextPosted(t, loop)()
	clock.Advance(time.Second)
	nextPosted(t, loop)()
	assert.Equal(t, 2, calls)

	cancel()
	cancel()
	assert.Equal(t, 0, clock.Waiters())
}

func TestLoopSchedulerDropsQueuedCallbackAfterCancel(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	loop := make(chan func(), 4)
	s := NewLoopScheduler(clock, func(fn func()) { loop <- fn })

	fired := false
	cancel := s.After(2*time.Second, func() { fired = true })
	clock.Advance(2 * time.Second)
	queued := nextPosted(t, loop)

	cancel()
	queued()
	assert.False(t, fired)
}

func TestLoopSchedulerAfterFires(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	loop := make(chan func(), 1)
	s := NewLoopScheduler(clock, func(fn func()) { loop <- fn })

	fired := false
	s.After(2*time.Second, func() { fired = true })
	clock.Advance(time.Second)
	select {
	case <-loop:
		t.Fatal("fired early")
	default:
	}
	clock.Advance(time.Second)
	nextPosted(t, loop)()
	assert.True(t, fired)
}
