// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for the service.

Collectors are registered against an injected [prometheus.Registerer] rather
than the global default, so tests can use a private registry. Every method is
safe on a nil *Metrics, which lets components run uninstrumented.
*/
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
)

const namespace = "gatekeeper"

// OutcomeOK labels a successful operation.
const OutcomeOK = "ok"

// Metrics holds every collector the service reports.
type Metrics struct {
	otpIssued       *prometheus.CounterVec
	otpVerified     *prometheus.CounterVec
	authOperations  *prometheus.CounterVec
	rateLimited     prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		otpIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issue_total",
			Help:      "OTP issuance attempts by outcome.",
		}, []string{"outcome"}),

		otpVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verify_total",
			Help:      "OTP verification attempts by outcome.",
		}, []string{"outcome"}),

		authOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Account credential operations by operation and outcome.",
		}, []string{"operation", "outcome"}),

		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the metrics of gatherer in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// # Recording

// OTPIssue records the outcome of an OTP issuance.
func (m *Metrics) OTPIssue(err error) {
	if m == nil {
		return
	}
	m.otpIssued.WithLabelValues(Outcome(err)).Inc()
}

// OTPVerify records the outcome of an OTP verification.
func (m *Metrics) OTPVerify(err error) {
	if m == nil {
		return
	}
	m.otpVerified.WithLabelValues(Outcome(err)).Inc()
}

// AuthOperation records the outcome of register, login, refresh or logout.
func (m *Metrics) AuthOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.authOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// RateLimited records one rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Outcome maps an error to a bounded label value: "ok", a lower-cased
// application error code, or "error" for anything else.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if appErr := apperr.As(err); appErr != nil {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
