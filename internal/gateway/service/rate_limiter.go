package service

import (
	"sync"
	"time"
)

// RateLimiter is a per-session fixed-window request counter. Denied requests
// are not recorded, so they never extend the window's history.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	mu          sync.Mutex
	requests    map[string][]time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing maxRequests per window per session.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether the session may make another request and how many
// requests remain in the current window after this one.
func (r *RateLimiter) Allow(sessionID string) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	windowStart := now.Add(-r.window)

	kept := r.requests[sessionID][:0]
	for _, t := range r.requests[sessionID] {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	r.requests[sessionID] = kept

	if len(kept) >= r.maxRequests {
		return false, 0
	}

	r.requests[sessionID] = append(kept, now)
	return true, r.maxRequests - len(r.requests[sessionID])
}
