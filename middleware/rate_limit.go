package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// authAttempt tracks failed authentications from one IP
type authAttempt struct {
	Count    int
	FirstAt  time.Time
	LockedAt time.Time
	IsLocked bool
}

// RateLimiter locks out an IP after repeated authentication failures
type RateLimiter struct {
	mu           sync.RWMutex
	attempts     map[string]*authAttempt
	maxAttempts  int
	windowPeriod time.Duration
	lockDuration time.Duration
}

// NewRateLimiter creates a rate limiter.
// maxAttempts failures within windowPeriod lock the IP for lockDuration.
func NewRateLimiter(maxAttempts int, windowPeriod, lockDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts:     make(map[string]*authAttempt),
		maxAttempts:  maxAttempts,
		windowPeriod: windowPeriod,
		lockDuration: lockDuration,
	}
	go rl.startCleanup()
	return rl
}

func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, attempt := range rl.attempts {
		if attempt.IsLocked && now.Sub(attempt.LockedAt) > rl.lockDuration {
			delete(rl.attempts, ip)
		} else if !attempt.IsLocked && now.Sub(attempt.FirstAt) > rl.windowPeriod {
			delete(rl.attempts, ip)
		}
	}
}

// IsLocked reports whether an IP is currently locked out
func (rl *RateLimiter) IsLocked(ip string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	attempt, ok := rl.attempts[ip]
	if !ok || !attempt.IsLocked {
		return false
	}
	return time.Since(attempt.LockedAt) <= rl.lockDuration
}

// RecordFailure counts one failed authentication for an IP
func (rl *RateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	attempt, ok := rl.attempts[ip]
	if !ok || now.Sub(attempt.FirstAt) > rl.windowPeriod {
		rl.attempts[ip] = &authAttempt{Count: 1, FirstAt: now}
		return
	}

	attempt.Count++
	if attempt.Count >= rl.maxAttempts {
		attempt.IsLocked = true
		attempt.LockedAt = now
	}
}

// RecordSuccess clears the failure count for an IP
func (rl *RateLimiter) RecordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, ip)
}

// Middleware rejects requests from locked-out IPs before auth runs
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.IsLocked(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many failed attempts, try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
