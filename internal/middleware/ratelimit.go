package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter keeps one token bucket per authenticated user, falling back to the
// client IP for anonymous callers.
type UserRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMinute int
	burst     int
	ttl       time.Duration
	now       func() time.Time
}

// NewUserRateLimiter allows perMinute requests per user with the given burst. Idle
// buckets are dropped after ttl by Cleanup.
func NewUserRateLimiter(perMinute, burst int, ttl time.Duration) *UserRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		visitors:  make(map[string]*visitor),
		perMinute: perMinute,
		burst:     burst,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (rl *UserRateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = rl.now()
		return v.limiter
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.burst)
	rl.visitors[key] = &visitor{limiter: limiter, lastSeen: rl.now()}
	return limiter
}

// Cleanup drops buckets idle for longer than ttl and reports how many remain.
func (rl *UserRateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
		}
	}
	return len(rl.visitors)
}

// Run calls Cleanup every minute until ctx is cancelled.
func (rl *UserRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// RateLimit rejects requests once the caller's bucket is empty. A non-positive rate
// disables limiting.
func RateLimit(rl *UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.perMinute <= 0 {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if userID := c.GetInt("userID"); userID != 0 {
			key = "user:" + strconv.Itoa(userID)
		}
		if !rl.limiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
