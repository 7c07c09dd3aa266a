package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

// rateLimiter keeps one token bucket per client IP
type rateLimiter struct {
	cfg RateLimiterConfig

	mu       sync.Mutex
	visitors map[string]*visitor
}

func (r *rateLimiter) get(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)
		r.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (r *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			for ip, v := range r.visitors {
				if time.Since(v.lastSeen) > r.cfg.TTL {
					delete(r.visitors, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}

// RateLimiterMiddleware limits every client IP to config.RequestsPerSecond.
// Idle clients are forgotten after config.TTL until ctx is done.
func RateLimiterMiddleware(ctx context.Context, config RateLimiterConfig) gin.HandlerFunc {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}
	if config.Burst < config.RequestsPerSecond {
		config.Burst = config.RequestsPerSecond
	}

	r := &rateLimiter{
		cfg:      config,
		visitors: make(map[string]*visitor),
	}

	go r.cleanup(ctx)

	return func(c *gin.Context) {
		if !r.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": RequestID(c),
			})
			return
		}

		c.Next()
	}
}
