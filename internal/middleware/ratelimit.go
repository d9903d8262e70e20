package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/examhall/examhall-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// staleAfter is how long an idle client's bucket survives before cleanup.
const staleAfter = 3 * time.Minute

// RateLimiter is a per-IP token bucket. It guards the login and
// invitation-redeem endpoints against credential and code guessing.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	burst    int
	interval time.Duration
	now      func() time.Time
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter allows burst requests per interval from each client IP.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		burst:    burst,
		interval: interval,
		now:      time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.buckets[ip] = b
	}

	// Whole elapsed intervals refill the bucket, capped at the burst size.
	if refill := int(now.Sub(b.lastSeen)/rl.interval) * rl.burst; refill > 0 {
		b.tokens = min(b.tokens+refill, rl.burst)
		b.lastSeen = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	for range time.Tick(time.Minute) {
		rl.mu.Lock()
		cutoff := rl.now().Add(-staleAfter)
		for ip, b := range rl.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}
