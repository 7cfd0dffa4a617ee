package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a key may go unused before its bucket is dropped.
const idleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is a token bucket per key, refilled at Limit per Window. It
// only limits the process it lives in.
type LocalLimiter struct {
	rule  Rule
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewLocalLimiter creates a limiter refilling rule.Limit tokens per
// rule.Window. A non-positive burst means rule.Limit.
func NewLocalLimiter(rule Rule, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = rule.Limit
	}
	return &LocalLimiter{
		rule:    rule,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *LocalLimiter) Rule() Rule {
	return l.rule
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	return l.get(key, now).AllowN(now, 1), nil
}

func (l *LocalLimiter) Remaining(_ context.Context, key string) (int, error) {
	now := l.now()
	tokens := l.get(key, now).TokensAt(now)
	if tokens < 0 {
		return 0, nil
	}
	return int(tokens), nil
}

func (l *LocalLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleAfter {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > idleAfter {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		every := l.rule.Window / time.Duration(max(l.rule.Limit, 1))
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}
