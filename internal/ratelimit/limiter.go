// Package ratelimit throttles public submissions per client with a token
// bucket: a burst of Burst submissions, refilled one per Every.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"santua/pkg/metrics"
)

const (
	// Two submissions, then one every five minutes: two per ten minutes
	// at a sustained pace.
	DefaultEvery = 5 * time.Minute
	DefaultBurst = 2
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	burst    int
	now      func() time.Time
	log      *zap.Logger
}

func New(every time.Duration, burst int, log *zap.Logger) *Limiter {
	if every <= 0 {
		every = DefaultEvery
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		r:        rate.Every(every),
		burst:    burst,
		now:      time.Now,
		log:      log,
	}
}

// Allow spends one token for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.r, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Prune forgets clients idle for longer than idle. Their buckets would be
// full again by then anyway.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware keys on the client IP and answers 429 when the bucket is empty.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			metrics.HttpRateLimitRejectionsTotal.Inc()
			l.log.Info("submission rate limited", zap.String("client", ip), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many submissions, try again in a few minutes",
			})
			return
		}
		c.Next()
	}
}
