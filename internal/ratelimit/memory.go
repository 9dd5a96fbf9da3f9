package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/locafrota/fleetsla/internal/clock"
)

// Idle buckets are swept once the map grows past this, the in-process
// analog of the redis PEXPIRE.
const sweepThreshold = 1024

type bucket struct {
	tokens    float64
	ts        time.Time
	expiresAt time.Time
}

type memoryLimiter struct {
	clock clock.Clock

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newMemoryLimiter(clk clock.Clock) *memoryLimiter {
	return &memoryLimiter{
		clock:   clk,
		buckets: make(map[string]*bucket),
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	if err := validate(key, rate, burst); err != nil {
		return nil, err
	}

	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(burst)}
		l.buckets[key] = b
	} else {
		delta := now.Sub(b.ts)
		if delta < 0 {
			delta = 0
		}
		b.tokens = math.Min(float64(burst), b.tokens+delta.Seconds()*rate)
	}
	b.ts = now
	b.expiresAt = now.Add(bucketTTL(rate, burst))

	allowed := false
	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	}

	if len(l.buckets) > sweepThreshold {
		l.sweepLocked(now)
	}

	return newResult(allowed, b.tokens, rate, burst), nil
}

func (l *memoryLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.expiresAt) {
			delete(l.buckets, key)
		}
	}
}
