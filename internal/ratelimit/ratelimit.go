// Package ratelimit implements the per-key sliding-window-equivalent
// throttle (C11): one bucket per client key, built on
// golang.org/x/time/rate the same way the teacher's GitHub provider client
// throttles outbound calls, generalized here to a keyed map of buckets
// instead of one global limiter.
package ratelimit

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter throttles requests per key at a fixed requests-per-minute rate.
// The bucket map is the one explicitly permitted cross-request in-memory
// cache in this service (§5) — it is never consulted for authorization
// decisions, only for throttling.
type Limiter struct {
	mu               sync.Mutex
	buckets          map[string]*rate.Limiter
	requestsPerMinute int
	burst            int
}

// New builds a Limiter allowing requestsPerMinute requests per key, with a
// burst equal to that same count so a key can spend its whole window at
// once after being idle.
func New(requestsPerMinute int) *Limiter {
	return &Limiter{
		buckets:           make(map[string]*rate.Limiter),
		requestsPerMinute: requestsPerMinute,
		burst:             requestsPerMinute,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		perSecond := rate.Limit(float64(l.requestsPerMinute) / 60.0)
		b = rate.NewLimiter(perSecond, l.burst)
		l.buckets[key] = b
	}
	return b
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Handler returns gin middleware that throttles by request key, per §4.9.
func (l *Limiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(requestKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

func requestKey(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return real
	}
	return "global"
}
