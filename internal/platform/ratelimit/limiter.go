// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements the per-client fixed-window request budget.

Counters live in the shared counter store so every server instance draws from
the same budget. A window starts at the first request from a client and is
never extended by later requests.
*/
package ratelimit

import (
	stdctx "context"
	"fmt"
	"time"

	"github.com/fugallabs/gatekeeper/internal/platform/constants"
	"github.com/fugallabs/gatekeeper/internal/platform/redis"
)

// Incrementer is the subset of the counter store the limiter needs.
type Incrementer interface {
	Increment(context stdctx.Context, key string, window time.Duration) (redis.Counter, error)
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Count      int64
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindow admits at most Max requests per client per Window.
type FixedWindow struct {
	store  Incrementer
	max    int
	window time.Duration
}

// NewFixedWindow builds a limiter backed by store.
func NewFixedWindow(store Incrementer, max int, window time.Duration) *FixedWindow {
	return &FixedWindow{store: store, max: max, window: window}
}

// Limit returns the configured budget per window.
func (limiter *FixedWindow) Limit() int { return limiter.max }

// Allow counts one request from client and reports whether it fits the budget.
//
// A store error is returned as-is; the caller decides whether to fail open or closed.
func (limiter *FixedWindow) Allow(context stdctx.Context, client string) (Decision, error) {
	counter, err := limiter.store.Increment(context, constants.RedisPrefixIPRateLimit+client, limiter.window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}

	remaining := limiter.max - int(counter.Value)
	if remaining < 0 {
		remaining = 0
	}

	decision := Decision{
		Allowed:   counter.Value <= int64(limiter.max),
		Count:     counter.Value,
		Remaining: remaining,
	}
	if !decision.Allowed {
		decision.RetryAfter = counter.TTL
	}

	return decision, nil
}

// RetryAfterSeconds rounds a wait up to whole seconds, never below one.
func RetryAfterSeconds(wait time.Duration) int {
	seconds := int((wait + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
