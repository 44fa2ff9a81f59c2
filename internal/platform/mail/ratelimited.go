// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	stdctx "context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedSender caps the outbound send rate of a wrapped [Sender].
//
// Callers block until a token is available or their context ends.
type RateLimitedSender struct {
	next    Sender
	limiter *rate.Limiter
}

// NewRateLimitedSender wraps next with a token bucket. A non-positive rate disables the cap.
func NewRateLimitedSender(next Sender, perSecond float64, burst int) *RateLimitedSender {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedSender{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Send waits for quota and forwards to the wrapped sender.
func (sender *RateLimitedSender) Send(context stdctx.Context, message Message) error {
	if err := sender.limiter.Wait(context); err != nil {
		return fmt.Errorf("mail: send quota wait aborted: %w", err)
	}
	return sender.next.Send(context, message)
}
