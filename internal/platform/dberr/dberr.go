// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// Any error the account store cannot classify is reported as
// [apperr.Unavailable]: the caller may retry, and the raw driver text never
// reaches a client.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
)

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// ErrNotFound is returned when a queried row doesn't exist.
var ErrNotFound = apperr.NotFound("Resource")

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Already classified further down
	if apperr.IsAppError(err) {
		return err
	}

	// 2. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 3. Unique constraint violation
	if constraint, ok := UniqueViolation(err); ok {
		conflict := apperr.Conflict("Resource already exists")
		conflict.Cause = fmt.Errorf("%s: unique violation on %s: %w", action, constraint, err)
		return conflict
	}

	// 4. Timeouts are kept apart in the cause so logs tell a slow store from a broken one
	if IsTimeout(err) {
		return apperr.Unavailable(fmt.Errorf("%s: timed out: %w", action, err))
	}

	// 5. Cancellations, broken connections and everything else
	return apperr.Unavailable(fmt.Errorf("%s: %w", action, err))
}

// UniqueViolation reports whether err is a unique constraint violation and,
// if so, the name of the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
		return pgError.ConstraintName, true
	}
	return "", false
}

// IsTimeout reports whether err came from an expired deadline or a driver timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}
