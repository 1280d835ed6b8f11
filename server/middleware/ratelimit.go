package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/auth"
	apperrors "github.com/kbukum/voxkit/errors"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests per key.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key. Defaults to SubjectKey.
	KeyFunc func(*gin.Context) string
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// RateLimit applies per-key sliding-window limiting and answers excess
// requests with RATE_LIMITED.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SubjectKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    cfg.RequestsPerMinute,
		now:      cfg.Now,
	}
	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c)) {
			abort(c, apperrors.New(apperrors.ErrCodeRateLimited, "rate limit exceeded").
				WithHint("Too many requests. Wait a minute and try again."))
			return
		}
		c.Next()
	}
}

// IPKey keys by client IP.
func IPKey(c *gin.Context) string {
	return c.ClientIP()
}

// SubjectKey keys by token subject, falling back to client IP.
func SubjectKey(c *gin.Context) string {
	if claims, ok := auth.FromContext(c.Request.Context()); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return c.ClientIP()
}

// sweepEvery is how many calls pass between purges of idle keys.
const sweepEvery = 1000

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	now      func() time.Time
	calls    int
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-time.Minute)

	rl.calls++
	if rl.calls%sweepEvery == 0 {
		rl.sweep(cutoff)
	}

	valid := filterByTime(rl.requests[key], cutoff)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		if valid := filterByTime(times, cutoff); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
