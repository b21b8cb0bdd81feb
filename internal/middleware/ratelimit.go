package middleware

import (
	"context"  // Stops the sweep goroutine
	"net/http" // Status codes
	"sync"     // Guards the client map
	"time"     // Idle tracking

	"lottery_system/internal/audit" // Security events
	"lottery_system/internal/web"   // Error pages

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Event fields
	"golang.org/x/time/rate"     // Token buckets
)

const clientIdle = 10 * time.Minute // Quiet clients older than this are forgotten

// RateLimiter throttles requests per client address
type RateLimiter struct {
	mu       sync.Mutex          // Guards limiters
	limiters map[string]*visitor // One bucket per client address
	rate     rate.Limit          // Refill rate
	burst    int                 // Bucket size
	idle     time.Duration       // Forget clients quiet for longer
	events   *audit.Logger       // Rejections are security events
}

type visitor struct {
	limiter  *rate.Limiter // Client bucket
	lastSeen time.Time     // Last request
}

// NewRateLimiter allows perSecond requests with the given burst per client
func NewRateLimiter(perSecond float64, burst int, events *audit.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idle:     clientIdle,
		events:   events,
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup forgets clients that have been quiet for longer than the idle window
func (rl *RateLimiter) Cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.limiters {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.limiters, k)
		}
	}
}

// StartCleanup sweeps idle clients every interval until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.Cleanup(now)
			}
		}
	}()
}

// Handler rejects requests above the limit with 429
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() // Client address behind trusted proxies
		if !rl.allow(key, time.Now()) {
			rl.events.Event("Rate limit exceeded", logrus.Fields{
				"ip":     key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			})
			web.RenderError(c, http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
