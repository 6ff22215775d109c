package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces actions against the storefront. The crawler waits on
// it between product queries to keep request cadence below the levels that
// trigger the anti-bot monitor.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// JitteredLimiter enforces a randomized delay between consecutive actions,
// drawn uniformly from [minDelay, maxDelay].
type JitteredLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredLimiter(minDelay, maxDelay time.Duration) *JitteredLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &JitteredLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *JitteredLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *JitteredLimiter) calculateDelay() time.Duration {
	if r.minDelay >= r.maxDelay {
		return r.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(r.maxDelay - r.minDelay)))
	return r.minDelay + jitter
}
