package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter adapts golang.org/x/time/rate to the Limiter contract,
// for supervisors that want smoothed token-bucket admission (one token
// trickling in every window/count) instead of WindowLimiter's strict
// rolling-window count. Swap it in with Supervisor.SetLimiter.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketLimiter builds a limiter whose steady-state throughput is
// count restarts per window, refilled continuously rather than in a hard
// rolling window, with a burst capacity of count.
func NewTokenBucketLimiter(count int, window time.Duration) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(count)), count),
	}
}

// Check consumes one token if available.
func (t *TokenBucketLimiter) Check() bool {
	return t.limiter.Allow()
}
