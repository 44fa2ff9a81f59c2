// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/ratelimit"
	"github.com/fugallabs/gatekeeper/internal/platform/redis"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*ratelimit.FixedWindow, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ratelimit.NewFixedWindow(redis.NewCounterStore(client, time.Second), max, window), server
}

/*
TestFixedWindow_Budget verifies the sixteenth request in a window is rejected.
*/
func TestFixedWindow_Budget(t *testing.T) {
	limiter, _ := newLimiter(t, 15, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 15; i++ {
		decision, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d should pass", i)
		assert.Equal(t, 15-i, decision.Remaining)
	}

	decision, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, time.Minute, decision.RetryAfter)
}

/*
TestFixedWindow_ClientsAreIndependent verifies budgets are keyed per client.
*/
func TestFixedWindow_ClientsAreIndependent(t *testing.T) {
	limiter, server := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	assert.True(t, server.Exists("rl:ip:10.0.0.1"))
	assert.True(t, server.Exists("rl:ip:10.0.0.2"))
}

/*
TestFixedWindow_Resets verifies a fresh budget after the window elapses.
*/
func TestFixedWindow_Resets(t *testing.T) {
	limiter, server := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)

	blocked, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	server.FastForward(time.Minute)

	again, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

/*
TestFixedWindow_StoreDown verifies the store error reaches the caller.
*/
func TestFixedWindow_StoreDown(t *testing.T) {
	limiter, server := newLimiter(t, 1, time.Minute)
	server.Close()

	_, err := limiter.Allow(context.Background(), "10.0.0.1")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnavailable))
}

/*
TestRetryAfterSeconds verifies rounding.
*/
func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(0))
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 60, ratelimit.RetryAfterSeconds(time.Minute))
	assert.Equal(t, 2, ratelimit.RetryAfterSeconds(1001*time.Millisecond))
}
