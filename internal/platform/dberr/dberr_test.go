// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/dberr"
)

/*
TestWrap_Classification maps driver errors onto the application taxonomy.
*/
func TestWrap_Classification(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_account_email"}

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"no_rows", pgx.ErrNoRows, apperr.CodeNotFound},
		{"unique_violation", fmt.Errorf("insert: %w", uniqueErr), apperr.CodeConflict},
		{"deadline", context.DeadlineExceeded, apperr.CodeUnavailable},
		{"unknown", errors.New("connection reset by peer"), apperr.CodeUnavailable},
		{"already_classified", apperr.InvalidToken(), apperr.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dberr.Wrap(tt.err, "account_store_test")
			assert.True(t, apperr.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "noop"))
}

/*
TestUniqueViolation exposes the violated constraint name.
*/
func TestUniqueViolation(t *testing.T) {
	constraint, ok := dberr.UniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "uq_account_username"})
	assert.True(t, ok)
	assert.Equal(t, "uq_account_username", constraint)

	_, ok = dberr.UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
}

/*
TestIsTimeout recognizes wrapped deadlines and marks them in the wrapped cause.
*/
func TestIsTimeout(t *testing.T) {
	assert.True(t, dberr.IsTimeout(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.False(t, dberr.IsTimeout(errors.New("syntax error")))

	wrapped := apperr.As(dberr.Wrap(context.DeadlineExceeded, "find_account"))
	require.NotNil(t, wrapped)
	assert.Equal(t, apperr.CodeUnavailable, wrapped.Code)
	assert.Contains(t, wrapped.Cause.Error(), "find_account: timed out")
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}
