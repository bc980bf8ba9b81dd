package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a token budget per minute for LLM providers. Callers
// report consumed tokens after each request; once the budget is exhausted the
// next Wait blocks until the window rolls over.
type TokenLimiter struct {
	mu           sync.Mutex
	maxPerMinute int
	used         int
	windowStart  time.Time
}

// NewTokenLimiter creates a limiter with the given tokens-per-minute budget.
func NewTokenLimiter(maxPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		maxPerMinute: maxPerMinute,
		windowStart:  time.Now(),
	}
}

// GetRemaining returns the number of tokens left in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refresh()
	remaining := l.maxPerMinute - l.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Wait records the given token usage, blocking first if the current window
// has no budget left.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.mu.Lock()
		l.refresh()
		if l.used < l.maxPerMinute {
			l.used += tokens
			l.mu.Unlock()
			return nil
		}
		sleep := time.Minute - time.Since(l.windowStart)
		l.mu.Unlock()

		if sleep <= 0 {
			continue
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refresh resets the window if a minute has elapsed. Caller must hold mu.
func (l *TokenLimiter) refresh() {
	if time.Since(l.windowStart) >= time.Minute {
		l.used = 0
		l.windowStart = time.Now()
	}
}
