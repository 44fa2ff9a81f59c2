// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package otp implements one-time passcode issuance and verification.

A code proves control of an email address. Issuance and guessing are guarded
by three counters that expire independently:

  - Cooldown: at most one issuance per email per minute.
  - Resend count: at most five issuances per email per fifteen minutes.
  - Verify attempts: at most five guesses per email for the life of a code.

Every check-then-write sequence is a single atomic store operation, so
concurrent requests for the same email cannot slip past a counter.
*/
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/ctxutil"
	"github.com/fugallabs/gatekeeper/internal/platform/mail"
	"github.com/fugallabs/gatekeeper/internal/platform/metrics"
	"github.com/fugallabs/gatekeeper/internal/platform/ratelimit"
	"github.com/fugallabs/gatekeeper/internal/platform/redis"
	"github.com/fugallabs/gatekeeper/pkg/normalize"
)

// # Contracts

// Store is the subset of the shared counter store used by the OTP engine.
type Store interface {
	Increment(context context.Context, key string, window time.Duration) (redis.Counter, error)
	Get(context context.Context, key string) (string, bool, error)
	Set(context context.Context, key, value string, ttl time.Duration) error
	SetIfAbsent(context context.Context, key, value string, ttl time.Duration) (bool, error)
	TTL(context context.Context, key string) (time.Duration, error)
	Delete(context context.Context, keys ...string) error
	CompareAndDelete(context context.Context, key, expected string, also ...string) (bool, error)
}

// codeSpace is the number of distinct codes, 10^CodeDigits.
var codeSpace = big.NewInt(1_000_000)

// Service issues, delivers and verifies one-time passcodes.
type Service struct {
	store   Store
	sender  mail.Sender
	metrics *metrics.Metrics
}

// NewService constructs the OTP engine. recorder may be nil.
func NewService(store Store, sender mail.Sender, recorder *metrics.Metrics) *Service {
	return &Service{store: store, sender: sender, metrics: recorder}
}

// # Issuance

/*
Issue creates a fresh code for email and returns it for delivery.

Description: Claims the cooldown, counts the issuance against the resend
window and stores a new random code. The email must already be normalized.

Parameters:
  - context: context.Context
  - email: string (normalized)

Returns:
  - string: The 6-digit code
  - error: OTPThrottled, OTPResendLimitExceeded or Unavailable
*/
func (service *Service) Issue(context context.Context, email string) (string, error) {
	cooldown := cooldownKey(email)

	// 1. Claim the cooldown. SET NX makes check-and-arm a single step.
	claimed, err := service.store.SetIfAbsent(context, cooldown, "1", Cooldown)
	if err != nil {
		return "", err
	}
	if !claimed {
		remaining, ttlErr := service.store.TTL(context, cooldown)
		if ttlErr != nil || remaining <= 0 {
			remaining = Cooldown
		}
		return "", apperr.OTPThrottled(ratelimit.RetryAfterSeconds(remaining))
	}

	// 2. Count this issuance. The window starts at the first increment.
	resends, err := service.store.Increment(context, resendCountKey(email), ResendWindow)
	if err != nil {
		service.releaseCooldown(context, email)
		return "", err
	}
	if resends.Value > MaxResends {
		// A rejected request must not also start a cooldown.
		service.releaseCooldown(context, email)
		limitErr := apperr.OTPResendLimitExceeded()
		limitErr.RetryAfter = ratelimit.RetryAfterSeconds(resends.TTL)
		return "", limitErr
	}

	// 3. Generate and store the code, replacing any previous one.
	code, err := generateCode()
	if err != nil {
		service.releaseCooldown(context, email)
		return "", apperr.Internal(err)
	}

	if err := service.store.Set(context, codeKey(email), code, CodeTTL); err != nil {
		service.releaseCooldown(context, email)
		return "", err
	}

	return code, nil
}

/*
SendOTP issues a code for email and hands it to the mail sender.

Description: A delivery failure is reported as Unavailable, but the issued code
is not rolled back. It stays valid until it expires.

Parameters:
  - context: context.Context
  - email: string (raw user input)

Returns:
  - error: Any [Service.Issue] error, or Unavailable if delivery failed
*/
func (service *Service) SendOTP(context context.Context, email string) (err error) {
	logger := ctxutil.GetLogger(context)
	defer func() { service.metrics.OTPIssue(err) }()

	email = normalize.Email(email)

	code, err := service.Issue(context, email)
	if err != nil {
		logger.WarnContext(context, "otp_issue_rejected", slog.String("reason", metrics.Outcome(err)))
		return err
	}

	message, err := renderEmail(email, code)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.sender.Send(context, message); err != nil {
		logger.ErrorContext(context, "otp_delivery_failed", slog.Any("error", err))
		return apperr.Unavailable(fmt.Errorf("otp_service_delivery_failed: %w", err))
	}

	logger.InfoContext(context, "otp_issued", slog.String("to", mail.MaskAddress(email)))
	return nil
}

// # Verification

/*
Verify checks code against the stored code for email and consumes it on success.

Description: Every call against a live code counts as an attempt. Once the
attempt budget is spent, even the correct code is refused. A code verifies
at most once: consumption is a compare-and-delete, so of two concurrent
correct guesses only one succeeds.

Parameters:
  - context: context.Context
  - email: string (raw user input)
  - code: string (raw user input)

Returns:
  - error: OTPNotFoundOrExpired, OTPVerifyLimitExceeded, OTPMismatch or Unavailable
*/
func (service *Service) Verify(context context.Context, email, code string) (err error) {
	defer func() { service.metrics.OTPVerify(err) }()

	email = normalize.Email(email)
	code = normalize.Code(code)

	// 1. No live code means nothing to guess against.
	stored, found, err := service.store.Get(context, codeKey(email))
	if err != nil {
		return err
	}
	if !found {
		return apperr.OTPNotFoundOrExpired()
	}

	// 2. Count the attempt before comparing, so a correct guess cannot bypass the budget.
	attempts, err := service.store.Increment(context, verifyAttemptsKey(email), CodeTTL)
	if err != nil {
		return err
	}
	if attempts.Value > MaxVerifyAttempts {
		ctxutil.GetLogger(context).WarnContext(context, "otp_verify_locked",
			slog.Int64("attempts", attempts.Value),
		)
		return apperr.OTPVerifyLimitExceeded()
	}

	// 3. Compare in constant time.
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		ctxutil.GetLogger(context).InfoContext(context, "otp_verify_failed",
			slog.Int64("attempts", attempts.Value),
		)
		return apperr.OTPMismatch()
	}

	// 4. Consume. Losing here means a concurrent verifier consumed it or it just expired.
	consumed, err := service.store.CompareAndDelete(context, codeKey(email), stored, verifyAttemptsKey(email))
	if err != nil {
		return err
	}
	if !consumed {
		return apperr.OTPNotFoundOrExpired()
	}

	return nil
}

// # Internals

// releaseCooldown gives back a cooldown claim after a failed issuance.
// Failure only delays the next request by up to one cooldown, so it is logged and dropped.
func (service *Service) releaseCooldown(context context.Context, email string) {
	if err := service.store.Delete(context, cooldownKey(email)); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "otp_cooldown_release_failed", slog.Any("error", err))
	}
}

// generateCode returns a uniformly random code of [CodeDigits] digits, zero-padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}
