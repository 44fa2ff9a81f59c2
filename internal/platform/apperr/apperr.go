// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Gatekeeper.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: One constructor per recoverable condition of the trust layer
    (OTP throttling, credential rejection, store unavailability).
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

// Machine-readable codes shared between the service layer and API clients.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnavailable        = "UNAVAILABLE"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeOTPThrottled       = "OTP_THROTTLED"
	CodeOTPResendLimit     = "OTP_RESEND_LIMIT"
	CodeOTPVerifyLimit     = "OTP_VERIFY_LIMIT"
	CodeOTPNotFound        = "OTP_NOT_FOUND"
	CodeOTPMismatch        = "OTP_MISMATCH"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
)

// AppError is the canonical error type for the Gatekeeper API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// RetryAfter, when positive, is surfaced to clients as a Retry-After header.
	RetryAfter int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Retryable reports whether the caller may retry the same request unchanged.
func (e *AppError) Retryable() bool { return e.Code == CodeUnavailable }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Account") // Returns "Account not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfterSeconds,
	}
}

// # One-Time Passcodes

// OTPThrottled reports that a code was issued too recently for this address.
func OTPThrottled(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeOTPThrottled,
		Message:    "OTP resend is on cooldown. Please wait before requesting a new OTP.",
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfterSeconds,
	}
}

// OTPResendLimitExceeded reports that the resend budget of the current window is spent.
func OTPResendLimitExceeded() *AppError {
	return &AppError{
		Code:       CodeOTPResendLimit,
		Message:    "Maximum OTP resend attempts exceeded. Please try again later.",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// OTPVerifyLimitExceeded reports that the guess budget against the current code is spent.
func OTPVerifyLimitExceeded() *AppError {
	return &AppError{
		Code:       CodeOTPVerifyLimit,
		Message:    "Maximum OTP verification attempts exceeded. Please request a new OTP.",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// OTPNotFoundOrExpired reports that no live code exists for the address.
func OTPNotFoundOrExpired() *AppError {
	return &AppError{
		Code:       CodeOTPNotFound,
		Message:    "OTP has expired or does not exist. Please request a new OTP.",
		HTTPStatus: http.StatusBadRequest,
	}
}

// OTPMismatch reports a wrong guess against a live code.
func OTPMismatch() *AppError {
	return &AppError{
		Code:       CodeOTPMismatch,
		Message:    "Invalid OTP. Please try again.",
		HTTPStatus: http.StatusBadRequest,
	}
}

// # Credentials

// InvalidCredentials is returned for both unknown accounts and wrong passwords.
// The payload is identical in both cases.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid email or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken covers every refresh-token rejection reason with one payload.
func InvalidToken() *AppError {
	return &AppError{
		Code:       CodeInvalidToken,
		Message:    "Invalid or expired token",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Unavailable creates a retryable 503 [AppError] for store timeouts and
// transport failures.
func Unavailable(cause error) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    "Service temporarily unavailable. Please retry.",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// ConfigurationError reports a missing or invalid process-wide setting.
func ConfigurationError(msg string) *AppError {
	return &AppError{
		Code:       CodeConfiguration,
		Message:    "Server configuration error",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      errors.New(msg),
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
