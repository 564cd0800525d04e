package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket limiter applied in front of model calls so
// local concurrency does not outrun the backend's request quota.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int

	tokens     float64
	lastUpdate time.Time

	totalConsumed int64
	last429Time   time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute requests.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokens:            float64(requestsPerMinute),
		lastUpdate:        time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}
		needed := 1.0 - r.tokens
		rate := float64(r.requestsPerMinute) / 60.0
		wait := time.Duration(needed / rate * float64(time.Second))
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Record429 notes a throttling response from the backend and drains the
// bucket so in-flight callers pause.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last429Time = time.Now()
	r.tokens = 0
	if retryAfter > 0 {
		// Push the refill clock forward so no token appears before the
		// server's hint elapses.
		r.lastUpdate = time.Now().Add(retryAfter)
	}
}

// refill adds tokens for time elapsed since lastUpdate. Caller holds mu.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed <= 0 {
		return
	}
	r.tokens += elapsed * float64(r.requestsPerMinute) / 60.0
	if max := float64(r.requestsPerMinute); r.tokens > max {
		r.tokens = max
	}
	r.lastUpdate = now
}
