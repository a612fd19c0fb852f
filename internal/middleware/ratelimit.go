package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"realtime-chat/internal/observability"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per caller key and forgets keys
// idle for longer than ttl.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	rps   float64
	burst int
	ttl   time.Duration
	now   func() time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		m:     make(map[string]*limiterEntry),
		rps:   rps,
		burst: burst,
		ttl:   10 * time.Minute,
		now:   time.Now,
	}
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	e, ok := p.m[key]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.m[key] = e
	}
	e.lastSeen = now
	return e.l.AllowN(now, 1)
}

func (p *limiterPool) sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.ttl)
	removed := 0
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
			removed++
		}
	}
	return removed
}

// RateLimit rejects callers that exceed rps sustained or burst at once with
// 429. Callers are keyed by identity subject, or client IP when anonymous.
// rps <= 0 disables limiting. The idle sweeper stops when done closes.
func RateLimit(rps float64, burst int, done <-chan struct{}) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	pool := newLimiterPool(rps, burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				pool.sweep()
			}
		}
	}()

	return func(c *gin.Context) {
		key := "ip:" + observability.IPFromRequest(c.Request)
		if identity := IdentityFrom(c); identity.Authenticated() {
			key = "sub:" + identity.Subject
		}
		if !pool.allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}
