package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDailyLimitReached means the per-day crawl budget for a platform and
// location is exhausted; the caller should skip the run, not wait.
var ErrDailyLimitReached = errors.New("daily crawl limit reached")

// DailyLimiter caps how many crawl runs may start per calendar day. Crawl
// cadence is rate-limited by policy, not by need.
type DailyLimiter interface {
	// Acquire consumes one crawl slot for the given key (platform:location)
	// or returns ErrDailyLimitReached.
	Acquire(ctx context.Context, key string) error
}

// RedisDailyLimiter counts runs in Redis so the cap holds across process
// restarts. Keys expire after 48h; the date is part of the key, so an old
// counter can never leak into a new day.
type RedisDailyLimiter struct {
	client    *redis.Client
	maxPerDay int
}

func NewRedisDailyLimiter(client *redis.Client, maxPerDay int) *RedisDailyLimiter {
	return &RedisDailyLimiter{client: client, maxPerDay: maxPerDay}
}

func (l *RedisDailyLimiter) Acquire(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("radar:crawls:%s:%s", key, time.Now().Format("2006-01-02"))

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("increment daily counter: %w", err)
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, 48*time.Hour)
	}
	if count > int64(l.maxPerDay) {
		return ErrDailyLimitReached
	}
	return nil
}

// MemoryDailyLimiter is the in-process fallback used when no Redis is
// configured. The cap only holds within one process lifetime.
type MemoryDailyLimiter struct {
	maxPerDay int
	mu        sync.Mutex
	counts    map[string]int
	day       string
}

func NewMemoryDailyLimiter(maxPerDay int) *MemoryDailyLimiter {
	return &MemoryDailyLimiter{
		maxPerDay: maxPerDay,
		counts:    make(map[string]int),
	}
}

func (l *MemoryDailyLimiter) Acquire(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if l.day != today {
		l.day = today
		l.counts = make(map[string]int)
	}

	l.counts[key]++
	if l.counts[key] > l.maxPerDay {
		return ErrDailyLimitReached
	}
	return nil
}
