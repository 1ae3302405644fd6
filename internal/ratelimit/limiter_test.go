package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"go.uber.org/zap"
)

func TestMemoryLimiterWindow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewLimiter(nil, clk, zap.NewNop())
	ctx := context.Background()

	first := limiter.Allow(ctx, "login:10.0.0.1", 2, time.Minute)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second := limiter.Allow(ctx, "login:10.0.0.1", 2, time.Minute)
	assert.True(t, second.Allowed)
	assert.Zero(t, second.Remaining)

	third := limiter.Allow(ctx, "login:10.0.0.1", 2, time.Minute)
	assert.False(t, third.Allowed)
	assert.Equal(t, time.Minute, third.RetryAfter)

	other := limiter.Allow(ctx, "login:10.0.0.2", 2, time.Minute)
	assert.True(t, other.Allowed)

	clk.Advance(time.Minute)
	reset := limiter.Allow(ctx, "login:10.0.0.1", 2, time.Minute)
	assert.True(t, reset.Allowed)
	assert.Equal(t, 1, reset.Count)
}

func TestRedisLimiterWindow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewLimiter(client, clock.New(), zap.NewNop())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := limiter.Allow(ctx, "feedback:1.2.3.4", 3, time.Second)
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, i, d.Count)
	}
	denied := limiter.Allow(ctx, "feedback:1.2.3.4", 3, time.Second)
	assert.False(t, denied.Allowed)
	assert.Positive(t, denied.RetryAfter)
	assert.True(t, mr.Exists(keyPrefix+"feedback:1.2.3.4"))

	mr.FastForward(2 * time.Second)
	again := limiter.Allow(ctx, "feedback:1.2.3.4", 3, time.Second)
	assert.True(t, again.Allowed)
	assert.Equal(t, 1, again.Count)
}

func TestRedisLimiterFallsBackWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer client.Close()

	limiter := NewLimiter(client, clock.New(), zap.NewNop())
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "k", 1, time.Minute).Allowed)
	assert.False(t, limiter.Allow(ctx, "k", 1, time.Minute).Allowed)
}

func TestLocker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	locker := NewLocker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "seed", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "seed", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "seed", "someone-else"))
	assert.True(t, mr.Exists(lockPrefix+"seed"))
	require.NoError(t, locker.Release(ctx, "seed", token))
	assert.False(t, mr.Exists(lockPrefix+"seed"))

	var nilLocker *Locker
	_, _, err = nilLocker.TryLock(ctx, "seed", time.Minute)
	assert.ErrorIs(t, err, ErrLockUnavailable)
}
