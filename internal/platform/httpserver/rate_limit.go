package httpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// principalLimiter keeps one token bucket per caller. Buckets idle for longer
// than limiterIdleTTL are dropped on the next sweep.
type principalLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newPrincipalLimiter returns nil, which allows everything, when perSecond is
// not positive.
func newPrincipalLimiter(perSecond float64, burst int) *principalLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &principalLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: map[string]*limiterEntry{},
		now:     time.Now,
	}
}

func (l *principalLimiter) Allow(principal string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for key, entry := range l.buckets {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.buckets[principal]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[principal] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}
