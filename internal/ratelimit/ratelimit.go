package ratelimit

import (
	"sync"
	"time"

	"github.com/xkdemo/moments/pkg/config"
	"golang.org/x/time/rate"
)

// Limiter throttles actions per key, e.g. posts per user.
type Limiter interface {
	Allow(key string) bool
}

// InMemoryLimiter keeps one token bucket per key
type InMemoryLimiter struct {
	buckets map[string]*rate.Limiter
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewInMemoryLimiter allows requests per the given period with the given burst.
// NewInMemoryLimiter(5, time.Minute, 3) refills one token every 12s and allows 3 in a row.
func NewInMemoryLimiter(requests int, per time.Duration, burst int) *InMemoryLimiter {
	r := rate.Inf
	if requests > 0 && per > 0 {
		r = rate.Every(per / time.Duration(requests))
	}
	if burst < 1 {
		burst = 1
	}
	return &InMemoryLimiter{
		buckets: make(map[string]*rate.Limiter),
		r:       r,
		b:       burst,
	}
}

func NewFromConfig(cfg *config.Config) Limiter {
	return NewInMemoryLimiter(cfg.RateLimit.Posts, cfg.RateLimit.Per, cfg.RateLimit.Burst)
}

func (l *InMemoryLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.buckets[key]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.buckets[key] = limiter
	}

	return limiter.Allow()
}
