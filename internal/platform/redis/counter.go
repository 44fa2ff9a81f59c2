// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	stdctx "context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
)

// # Scripts

// incrementScript increments a counter and arms its window on first use.
//
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
//
// Returns {value, remaining ttl in milliseconds}. A key that somehow lost its
// expiry is re-armed so it can never become permanent.
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// compareAndDeleteScript deletes KEYS[1] only if it still holds ARGV[1].
// Any additional keys are deleted in the same step on success.
//
// Returns 1 when the caller won the race, 0 otherwise.
var compareAndDeleteScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
  return 0
end
redis.call('DEL', unpack(KEYS))
return 1
`)

// # Counter Store

// Counter is the state of a windowed counter after an increment.
type Counter struct {
	Value int64
	TTL   time.Duration
}

// CounterStore is the shared key-value store for short-lived auth state.
//
// Every method runs under its own deadline and reports transport failures as
// [apperr.Unavailable] so callers never mistake an outage for "key absent".
type CounterStore struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewCounterStore wraps a Redis client. A non-positive timeout falls back to two seconds.
func NewCounterStore(client redis.UniversalClient, timeout time.Duration) *CounterStore {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &CounterStore{client: client, timeout: timeout}
}

// Increment atomically adds one to key and arms window on the first increment.
// Later increments inside the window do not extend it.
func (store *CounterStore) Increment(context stdctx.Context, key string, window time.Duration) (Counter, error) {
	callCtx, cancel := store.bound(context)
	defer cancel()

	result, err := incrementScript.Run(callCtx, store.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, unavailable("increment", err)
	}
	if len(result) != 2 {
		return Counter{}, apperr.Internal(fmt.Errorf("redis: unexpected increment reply %v", result))
	}

	return Counter{Value: result[0], TTL: time.Duration(result[1]) * time.Millisecond}, nil
}

// SetExpiry replaces the time-to-live of an existing key.
func (store *CounterStore) SetExpiry(context stdctx.Context, key string, ttl time.Duration) error {
	callCtx, cancel := store.bound(context)
	defer cancel()

	if err := store.client.PExpire(callCtx, key, ttl).Err(); err != nil {
		return unavailable("expire", err)
	}
	return nil
}

// Get returns the value at key. The boolean is false when the key is absent.
func (store *CounterStore) Get(context stdctx.Context, key string) (string, bool, error) {
	callCtx, cancel := store.bound(context)
	defer cancel()

	value, err := store.client.Get(callCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", err)
	}
	return value, true, nil
}

// Set stores value at key with a time-to-live, overwriting any previous value.
func (store *CounterStore) Set(context stdctx.Context, key, value string, ttl time.Duration) error {
	callCtx, cancel := store.bound(context)
	defer cancel()

	if err := store.client.Set(callCtx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// SetIfAbsent stores value at key only if the key does not exist.
// It reports whether this call created the key.
func (store *CounterStore) SetIfAbsent(context stdctx.Context, key, value string, ttl time.Duration) (bool, error) {
	callCtx, cancel := store.bound(context)
	defer cancel()

	created, err := store.client.SetNX(callCtx, key, value, ttl).Result()
	if err != nil {
		return false, unavailable("setnx", err)
	}
	return created, nil
}

// TTL returns the remaining lifetime of key, or zero if it has none.
func (store *CounterStore) TTL(context stdctx.Context, key string) (time.Duration, error) {
	callCtx, cancel := store.bound(context)
	defer cancel()

	ttl, err := store.client.PTTL(callCtx, key).Result()
	if err != nil {
		return 0, unavailable("pttl", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Delete removes keys. Missing keys are ignored.
func (store *CounterStore) Delete(context stdctx.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	callCtx, cancel := store.bound(context)
	defer cancel()

	if err := store.client.Del(callCtx, keys...).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

// Exists reports whether key is present.
func (store *CounterStore) Exists(context stdctx.Context, key string) (bool, error) {
	callCtx, cancel := store.bound(context)
	defer cancel()

	count, err := store.client.Exists(callCtx, key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return count > 0, nil
}

// CompareAndDelete deletes key and every key in also, but only if key still
// holds expected. It reports whether the deletion happened.
//
// Two concurrent callers holding the same expected value cannot both win.
func (store *CounterStore) CompareAndDelete(context stdctx.Context, key, expected string, also ...string) (bool, error) {
	callCtx, cancel := store.bound(context)
	defer cancel()

	keys := append([]string{key}, also...)
	won, err := compareAndDeleteScript.Run(callCtx, store.client, keys, expected).Int64()
	if err != nil {
		return false, unavailable("compare_and_delete", err)
	}
	return won == 1, nil
}

// Ping checks connectivity for readiness probes.
func (store *CounterStore) Ping(context stdctx.Context) error {
	return Ping(context, store.client)
}

// # Internals

func (store *CounterStore) bound(context stdctx.Context) (stdctx.Context, stdctx.CancelFunc) {
	return stdctx.WithTimeout(context, store.timeout)
}

func unavailable(operation string, err error) error {
	return apperr.Unavailable(fmt.Errorf("redis: %s failed: %w", operation, err))
}
