package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every ManualClock starts at.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a wall clock that only moves when told to.
//
// Timelines advance by the wall-clock delta between ticks, so feeding them
// instants from a ManualClock makes playback time exact and reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// Now returns the current instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvanceSeconds is Advance for fractional seconds.
func (c *ManualClock) AdvanceSeconds(s float64) time.Time {
	return c.Advance(Seconds(s))
}

// Reset moves the clock back to Epoch.
//
// Used for test reuse. After Reset(), Now() returns Epoch.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}

// Seconds converts fractional seconds to a Duration, rounding to the
// nearest nanosecond.
func Seconds(s float64) time.Duration {
	return time.Duration(s*float64(time.Second) + 0.5)
}
