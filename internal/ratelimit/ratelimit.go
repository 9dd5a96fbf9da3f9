// Package ratelimit implements a token bucket limiter. Redis backs the
// bucket when a client is configured so limits hold across instances;
// otherwise a process-local bucket applies.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"
)

// Result describes the outcome of a single Allow call. RetryAfter is
// zero when the call was allowed.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter answers whether one more event under key fits a bucket that
// refills at rate tokens per second up to burst.
type Limiter interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

func validate(key string, rate float64, burst int) error {
	if key == "" {
		return errors.New("rate limit key is empty")
	}
	if rate <= 0 {
		return errors.New("rate limit rate must be positive")
	}
	if burst <= 0 {
		return errors.New("rate limit burst must be positive")
	}
	return nil
}

// bucketTTL bounds how long an idle bucket is kept. An idle bucket is
// full again after burst/rate seconds, so state older than twice that
// can be dropped.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil(float64(burst) / rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func newResult(allowed bool, tokens float64, rate float64, burst int) *Result {
	res := &Result{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(tokens),
	}
	if !allowed {
		if needed := 1 - tokens; needed > 0 {
			res.RetryAfter = time.Duration(needed / rate * float64(time.Second))
		}
	}
	return res
}
