// Package testutil provides deterministic fakes for the sync engine's
// collaborators: a manual clock, a scripted remote store, an in-memory
// durable store, and a settable connectivity oracle.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a thread-safe clock that only moves when told to.
//
// Retry bookkeeping and garbage-collection cutoffs depend on wall time;
// tests advance this clock instead of sleeping.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current frozen time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
