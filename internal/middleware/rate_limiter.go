package middleware

import (
	"sync"
	"time"

	apperrors "github.com/yohanna4/song-manager/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map between cleanups.
const maxTrackedClients = 10000

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int

	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per client
// with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:        make(map[string]*rate.Limiter),
		rate:            rate.Limit(perSecond),
		burst:           burst,
		cleanupInterval: 10 * time.Minute,
		lastCleanup:     time.Now(),
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now := time.Now(); now.Sub(rl.lastCleanup) >= rl.cleanupInterval {
		if len(rl.limiters) > maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		rl.lastCleanup = now
	}

	l, ok := rl.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[ip] = l
	}
	return l
}

// Limit is the rate limiting middleware. Rejected requests get 429.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			AbortWithError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
