package controller

import (
	"sync"
	"time"
)

// Clock supplies wall-clock time for the cooldown gate.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is advanced explicitly, used by replay drivers and tests.
// It never moves backward.
type ManualClock struct {
	mu sync.Mutex
	ts uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{ts: start}
}

// Advance moves the clock to the given unix timestamp if it is later than
// the current one.
func (c *ManualClock) Advance(unix uint64) {
	c.mu.Lock()
	if unix > c.ts {
		c.ts = unix
	}
	c.mu.Unlock()
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(int64(c.ts), 0).UTC()
}
