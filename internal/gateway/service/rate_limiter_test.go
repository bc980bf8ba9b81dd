package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(30, time.Minute)

	for i := 0; i < 30; i++ {
		allowed, _ := limiter.Allow("s1")
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, remaining := limiter.Allow("s1")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestRateLimiterRemainingCountsDown(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	_, remaining := limiter.Allow("s1")
	assert.Equal(t, 2, remaining)
	_, remaining = limiter.Allow("s1")
	assert.Equal(t, 1, remaining)
	_, remaining = limiter.Allow("s1")
	assert.Equal(t, 0, remaining)
}

func TestRateLimiterSessionsAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	allowed, _ := limiter.Allow("s1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("s2")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("s1")
	assert.False(t, allowed)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	limiter.Allow("s1")
	limiter.Allow("s1")
	allowed, _ := limiter.Allow("s1")
	assert.False(t, allowed)

	current = current.Add(61 * time.Second)
	allowed, remaining := limiter.Allow("s1")
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

// A denied request must not count against the window, so spamming past the
// limit cannot extend the lockout.
func TestRateLimiterDeniedRequestsNotRecorded(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	limiter.Allow("s1")
	limiter.Allow("s1")

	// Hammer while limited.
	current = current.Add(30 * time.Second)
	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("s1")
		assert.False(t, allowed)
	}

	// Once the original two requests age out, traffic resumes.
	current = current.Add(31 * time.Second)
	allowed, _ := limiter.Allow("s1")
	assert.True(t, allowed)
}
