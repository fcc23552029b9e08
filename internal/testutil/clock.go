package testutil

import (
	"sync"
	"time"
)

// RunDate is the date used by deterministic test runs.
var RunDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

// FixedClock is a clock that only moves when told to.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock stopped at t. A zero t uses RunDate.
func NewFixedClock(t time.Time) *FixedClock {
	if t.IsZero() {
		t = RunDate
	}
	return &FixedClock{now: t}
}

// Now returns the clock's current time. Pass clock.Now as a runner.Clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
