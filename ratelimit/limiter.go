// Package ratelimit provides the restart-rate primitive spec.md §4.4 treats
// as an external black box: something with a single Check method that
// returns whether a token is available and, if so, consumes it.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is the contract the supervisor's recovery path consults before
// attempting a restart. Check reports whether a token is available under
// the configured policy and, if true, consumes it.
type Limiter interface {
	Check() bool
}

// WindowLimiter is a rolling-window restart counter: at most Count restarts
// are admitted in any trailing window of length Window. This is the
// default limiter a Supervisor is constructed with, lifted directly out of
// the teacher's own restart-intensity bookkeeping
// (supervisor.handleChildFailure's restartHistory slice, pruned against
// now.Add(-window) on every check) so it lives as its own reusable
// component instead of being inlined into the state machine.
type WindowLimiter struct {
	count  int
	window time.Duration

	mu      sync.Mutex
	history []time.Time
	now     func() time.Time
}

// NewWindowLimiter builds a limiter admitting at most count restarts in any
// trailing window of the given duration.
func NewWindowLimiter(count int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		count:   count,
		window:  window,
		history: make([]time.Time, 0, count),
		now:     time.Now,
	}
}

// Check records an attempt and reports whether it falls within the
// configured budget. Every call — including the one that trips the limit —
// counts as exactly one attempt, matching spec.md's I6 accounting rule.
func (w *WindowLimiter) Check() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	pruned := w.history[:0]
	for _, t := range w.history {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	w.history = append(pruned, now)

	return len(w.history) <= w.count
}
