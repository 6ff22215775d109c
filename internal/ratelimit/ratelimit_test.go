package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitteredLimiterFirstWaitIsPrompt(t *testing.T) {
	limiter := NewJitteredLimiter(time.Hour, time.Hour)

	// lastAction starts at the zero time, so the elapsed window is already
	// far larger than any delay and the first call returns immediately.
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestJitteredLimiterEnforcesDelay(t *testing.T) {
	limiter := NewJitteredLimiter(30*time.Millisecond, 30*time.Millisecond)
	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestJitteredLimiterCancellation(t *testing.T) {
	limiter := NewJitteredLimiter(time.Hour, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJitteredLimiterSwappedBounds(t *testing.T) {
	limiter := NewJitteredLimiter(50*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, limiter.maxDelay, "inverted bounds collapse to minDelay")
}

func TestCalculateDelayWithinBounds(t *testing.T) {
	limiter := NewJitteredLimiter(2*time.Second, 5*time.Second)
	for i := 0; i < 100; i++ {
		d := limiter.calculateDelay()
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 5*time.Second)
	}
}

func TestMemoryDailyLimiterCap(t *testing.T) {
	limiter := NewMemoryDailyLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Acquire(ctx, "meituan:南坪步行街"))
	}
	assert.ErrorIs(t, limiter.Acquire(ctx, "meituan:南坪步行街"), ErrDailyLimitReached)
}

func TestMemoryDailyLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryDailyLimiter(1)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, "meituan:南坪步行街"))
	assert.NoError(t, limiter.Acquire(ctx, "meituan:南滨路"), "each platform:location pair has its own budget")
	assert.NoError(t, limiter.Acquire(ctx, "eleme:南坪步行街"))
	assert.ErrorIs(t, limiter.Acquire(ctx, "meituan:南坪步行街"), ErrDailyLimitReached)
}

func TestMemoryDailyLimiterResetsOnNewDay(t *testing.T) {
	limiter := NewMemoryDailyLimiter(1)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx, "meituan:南坪步行街"))
	require.ErrorIs(t, limiter.Acquire(ctx, "meituan:南坪步行街"), ErrDailyLimitReached)

	limiter.day = "2000-01-01"
	assert.NoError(t, limiter.Acquire(ctx, "meituan:南坪步行街"), "a new calendar day clears all counters")
}
