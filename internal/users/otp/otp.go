// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"time"

	"github.com/fugallabs/gatekeeper/internal/platform/constants"
)

// # Abuse Policy

const (
	// CodeTTL is how long an issued code stays verifiable.
	CodeTTL = 5 * time.Minute

	// Cooldown is the minimum gap between two issuances for one email.
	Cooldown = 60 * time.Second

	// ResendWindow is the fixed window over which issuances are counted.
	ResendWindow = 15 * time.Minute

	// MaxResends is the number of issuances allowed per email per [ResendWindow].
	MaxResends = 5

	// MaxVerifyAttempts is the number of guesses allowed against one email's code.
	// The attempt counter lives as long as [CodeTTL] and survives re-issuance.
	MaxVerifyAttempts = 5

	// CodeDigits is the length of a code. Leading zeros are significant.
	CodeDigits = 6
)

// # Request Fields

const (
	FieldEmail = "email"
	FieldOTP   = "otp"
)

// # Counter Keys
//
// All four counters are scoped per normalized email and expire independently.

func codeKey(email string) string { return constants.RedisPrefixOTPCode + email }

func cooldownKey(email string) string { return constants.RedisPrefixOTPCooldown + email }

func resendCountKey(email string) string { return constants.RedisPrefixOTPResendCount + email }

func verifyAttemptsKey(email string) string { return constants.RedisPrefixOTPAttempts + email }
