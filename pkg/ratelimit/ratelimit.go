// Package ratelimit provides per-principal admission control for the API
// layer. Buckets are created lazily per (principal, endpoint) pair and
// evicted after a period of inactivity.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleEviction = 10 * time.Minute

// Limiter holds lazily created token buckets keyed by principal and
// endpoint class.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	lastScan time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a keyed limiter. perMinute is the sustained rate; burst is the
// instantaneous allowance.
func New(perMinute int, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &Limiter{
		buckets:  make(map[string]*bucket),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		lastScan: time.Now(),
	}
}

// Allow reports whether the principal may perform one more request against
// the endpoint class right now.
func (l *Limiter) Allow(principal, endpoint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.maybeEvict(now)

	key := principal + "\x00" + endpoint
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.Allow()
}

// maybeEvict drops idle buckets. Called with the lock held, at most once per
// eviction window.
func (l *Limiter) maybeEvict(now time.Time) {
	if now.Sub(l.lastScan) < idleEviction {
		return
	}
	l.lastScan = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= idleEviction {
			delete(l.buckets, key)
		}
	}
}
