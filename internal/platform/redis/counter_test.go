// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/redis"
)

func newStore(t *testing.T) (*redis.CounterStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewCounterStore(client, time.Second), server
}

/*
TestIncrement_ArmsWindowOnce verifies the window starts at the first increment and is not extended.
*/
func TestIncrement_ArmsWindowOnce(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	first, err := store.Increment(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Value)
	assert.Equal(t, time.Minute, first.TTL)

	server.FastForward(40 * time.Second)

	second, err := store.Increment(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Value)
	assert.Equal(t, 20*time.Second, server.TTL("c"))

	server.FastForward(21 * time.Second)

	reset, err := store.Increment(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset.Value)
}

/*
TestIncrement_RearmsPermanentKey verifies a counter without expiry gets one.
*/
func TestIncrement_RearmsPermanentKey(t *testing.T) {
	store, server := newStore(t)

	require.NoError(t, server.Set("c", "3"))

	counter, err := store.Increment(context.Background(), "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counter.Value)
	assert.Equal(t, time.Minute, server.TTL("c"))
}

/*
TestIncrement_Concurrent verifies no increment is lost under contention.
*/
func TestIncrement_Concurrent(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "c", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, ok, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "50", value)
}

/*
TestGetSetDelete covers the plain key operations.
*/
func TestGetSetDelete(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	require.NoError(t, store.SetExpiry(ctx, "k", 5*time.Second))
	assert.Equal(t, 5*time.Second, server.TTL("k"))

	require.NoError(t, store.Delete(ctx, "k", "missing"))
	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

/*
TestSetIfAbsent verifies only one caller claims a key.
*/
func TestSetIfAbsent(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	created, err := store.SetIfAbsent(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SetIfAbsent(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, created)

	server.FastForward(time.Minute)

	created, err = store.SetIfAbsent(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)
}

/*
TestCompareAndDelete verifies the single-winner consume semantics.
*/
func TestCompareAndDelete(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "code", "123456", time.Minute))
	require.NoError(t, store.Set(ctx, "attempts", "2", time.Minute))

	won, err := store.CompareAndDelete(ctx, "code", "654321", "attempts")
	require.NoError(t, err)
	assert.False(t, won)
	assert.True(t, server.Exists("code"))

	won, err = store.CompareAndDelete(ctx, "code", "123456", "attempts")
	require.NoError(t, err)
	assert.True(t, won)
	assert.False(t, server.Exists("code"))
	assert.False(t, server.Exists("attempts"))

	won, err = store.CompareAndDelete(ctx, "code", "123456")
	require.NoError(t, err)
	assert.False(t, won)
}

/*
TestStore_Unavailable verifies transport failures are never reported as absence.
*/
func TestStore_Unavailable(t *testing.T) {
	store, server := newStore(t)
	server.Close()

	ctx := context.Background()

	_, _, err := store.Get(ctx, "k")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnavailable))

	_, err = store.Increment(ctx, "c", time.Minute)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnavailable))

	_, err = store.SetIfAbsent(ctx, "lock", "1", time.Minute)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnavailable))
}

/*
TestPing reports the reachability used by the readiness probe.
*/
func TestPing(t *testing.T) {
	store, server := newStore(t)
	require.NoError(t, store.Ping(context.Background()))

	server.Close()
	assert.Error(t, store.Ping(context.Background()))
}
