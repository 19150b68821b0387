package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Idle buckets are dropped
// after ttl by a background sweep started on first use.
type RateLimiter struct {
	mu     sync.Mutex
	m      map[string]*limiterEntry
	rps    rate.Limit
	burst  int
	ttl    time.Duration
	period time.Duration
	now    func() time.Time
	start  sync.Once
	stop   sync.Once
	stopCh chan struct{}
}

func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		m:      make(map[string]*limiterEntry),
		rps:    rate.Limit(rps),
		burst:  burst,
		ttl:    10 * time.Minute,
		period: time.Minute,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

func (p *RateLimiter) get(key string) *rate.Limiter {
	p.start.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = p.now()
		return e.l
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: p.now()}
	return l
}

// Reserve takes a token for key and reports how long the caller must wait
// when none is available.
func (p *RateLimiter) Reserve(key string) (time.Duration, bool) {
	r := p.get(key).ReserveN(p.now(), 1)
	if !r.OK() {
		return time.Second, false
	}
	delay := r.DelayFrom(p.now())
	if delay > 0 {
		r.CancelAt(p.now())
		return delay, false
	}
	return 0, true
}

// Shutdown stops the cleanup goroutine.
func (p *RateLimiter) Shutdown() {
	p.stop.Do(func() { close(p.stopCh) })
}

func (p *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.stopCh:
			return
		}
	}
}

func (p *RateLimiter) sweep() {
	cutoff := p.now().Add(-p.ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}

func (p *RateLimiter) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// RateLimit throttles requests per authenticated operator, falling back to the client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetOperator(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		wait, ok := limiter.Reserve(key)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
