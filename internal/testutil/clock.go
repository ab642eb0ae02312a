package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every DeterministicClock starts at.
var Epoch = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

// TestSecret is a signing secret long enough for token.NewSigner.
const TestSecret = "semfilter-test-secret-0123456789abcdef"

// DeterministicClock is a manually advanced wall clock for tests.
//
// Tokens minted under the same clock position are byte-identical, which
// keeps golden files stable. Advance moves time forward to exercise expiry.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock positioned at Epoch.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{now: Epoch}
}

// Now returns the current clock position. Its signature matches time.Now
// so it can be passed wherever a clock function is injected.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset moves the clock back to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
