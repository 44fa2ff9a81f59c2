// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fugallabs/gatekeeper/internal/platform/metrics"
)

// Instrument records the latency and status of every request by route pattern.
//
// The route pattern is read after the handler ran, when chi has resolved it.
// Raw paths are never used as labels.
func Instrument(recorder *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()
			wrappedWriter := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(wrappedWriter, request)

			route := ""
			if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
				route = routeContext.RoutePattern()
			}

			recorder.HTTPRequest(request.Method, route, wrappedWriter.status, time.Since(startTime))
		})
	}
}
