// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/ctxutil"
	"github.com/fugallabs/gatekeeper/internal/platform/metrics"
	"github.com/fugallabs/gatekeeper/internal/platform/ratelimit"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
)

// Limiter is the admission check used by [IPRateLimit].
type Limiter interface {
	Allow(context context.Context, client string) (ratelimit.Decision, error)
	Limit() int
}

// IPRateLimit enforces the per-address request budget held in the shared counter store.
//
// Rejected requests are never forwarded. When the counter store cannot be
// reached the request fails with 503 instead of being let through. Proxy
// headers select the address only when trustProxy is set.
func IPRateLimit(limiter Limiter, recorder *metrics.Metrics, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			clientIP := ClientIP(request, trustProxy)

			decision, err := limiter.Allow(request.Context(), clientIP)
			if err != nil {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "rate_limit_store_unavailable",
					slog.Any("error", err),
				)
				if !apperr.IsAppError(err) {
					err = apperr.Unavailable(err)
				}
				respond.Error(writer, request, err)
				return
			}

			writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				recorder.RateLimited()
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "rate_limit_exceeded",
					slog.Int64("count", decision.Count),
				)
				respond.Error(writer, request, apperr.RateLimited(ratelimit.RetryAfterSeconds(decision.RetryAfter)))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
