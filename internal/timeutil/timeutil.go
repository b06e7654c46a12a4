// Package timeutil provides the wall clock abstraction and small helpers for
// working with durations.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock yields the current wall-clock time. Session progress is always
// recomputed from the clock rather than an in-process timer so that the
// process tolerates arbitrary suspension.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a Clock backed by time.Now.
func NewRealClock() Clock { return realClock{} }

// ManualClock is a Clock whose time is advanced explicitly. It is used in
// tests to simulate the passage of wall-clock time.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock starting at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

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

// Set pins the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

// ToMillis converts a time value to Unix milliseconds, with the zero time
// mapping to 0.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

// FromMillis is the inverse of ToMillis.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}

// FormatMinSec renders a duration as MM:SS for status output.
func FormatMinSec(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int(d.Round(time.Second).Seconds())

	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
