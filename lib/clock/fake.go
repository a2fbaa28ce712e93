package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time.
//
// Unlike a real clock, Sleep advances the fake time by the full sleep
// duration and returns immediately. A poll loop written against Clock
// therefore runs to its deadline synchronously under test: each
// iteration's Sleep marches Now() forward until the loop observes that
// its deadline has passed.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time

	// SleepHook, when non-nil, runs after each Sleep advances the
	// clock. Tests use it to mutate scripted state mid-poll (e.g.
	// change a fake pane's screen after the second poll).
	SleepHook func(now time.Time)
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives the fake time after d. The
// fake clock does not block timers: the channel is pre-filled with the
// time at which the duration would have elapsed.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.current.Add(d)
	return ch
}

// Sleep advances the clock by d and returns.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	if d > 0 {
		c.current = c.current.Add(d)
	}
	hook := c.SleepHook
	now := c.current
	c.mu.Unlock()
	if hook != nil {
		hook(now)
	}
}

// Advance moves the clock forward by d without sleeping.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
