package utils

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// A Throttler rate limits repetitive log statements inside hot loops.
// Each key gets its own window; Allow reports whether the caller should
// log now and, if so, starts a new window for that key.
type Throttler struct {
	mu       sync.Mutex
	clk      clock.Clock
	interval time.Duration
	last     map[string]time.Time
}

// NewThrottler returns a Throttler that allows one log per key per interval.
func NewThrottler(clk clock.Clock, interval time.Duration) *Throttler {
	return &Throttler{
		clk:      clk,
		interval: interval,
		last:     map[string]time.Time{},
	}
}

// Allow reports whether a message for the given key may be logged now.
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}
