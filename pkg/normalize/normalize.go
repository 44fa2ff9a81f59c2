// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package normalize canonicalizes user-supplied identities before they are used
// as lookup keys.
//
// # Usage
//
// Email addresses and usernames are the identity of OTP records and accounts.
// Two spellings of the same address must map to the same counter keys,
// otherwise a client could multiply its resend and verify budgets.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Email returns the canonical form of an email address.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFKC (folds compatibility forms such as full-width letters).
// 2. Trims surrounding whitespace.
// 3. Converts to lowercase.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Username returns the canonical form of a username.
//
// Usernames follow the same pipeline as [Email] and additionally drop
// control and format characters (zero-width joiners and the like) that would
// make two visually identical names distinct.
func Username(s string) string {
	t := transform.Chain(norm.NFKC, transform.RemoveFunc(isInvisible))
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(strings.TrimSpace(result))
}

// Code strips whitespace around a one-time passcode.
func Code(s string) string {
	return strings.TrimSpace(s)
}

// isInvisible reports whether r is a control or format character.
func isInvisible(r rune) bool {
	return unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r)
}
