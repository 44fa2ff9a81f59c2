// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
)

// # Account Data Access

// AccountRepository defines the data access contract for account credentials.
//
// Lookups that match nothing return [dberr.ErrNotFound]. Transport failures
// and timeouts are reported as [apperr.Unavailable].
type AccountRepository interface {

	// FindByID returns the account with the given ID.
	FindByID(context context.Context, id string) (*Account, error)

	// FindByEmail returns the account with the given normalized email.
	FindByEmail(context context.Context, email string) (*Account, error)

	// FindByUsername returns the account with the given normalized username.
	FindByUsername(context context.Context, username string) (*Account, error)

	// FindByLogin returns the account whose email or username equals credential.
	FindByLogin(context context.Context, credential string) (*Account, error)

	// FindByRefreshToken returns the account whose current refresh pointer equals tokenHash.
	FindByRefreshToken(context context.Context, tokenHash string) (*Account, error)

	/*
		Create persists a brand-new account.

		Returns:
		  - error: Conflict when the email or username is already taken
	*/
	Create(context context.Context, account *Account) error

	/*
		SaveRefreshToken overwrites the refresh pointer unconditionally.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - tokenHash: string (empty clears the pointer)

		Returns:
		  - error: NotFound or persistence failures
	*/
	SaveRefreshToken(context context.Context, accountID, tokenHash string) error

	/*
		RotateRefreshToken moves the refresh pointer from currentHash to nextHash.

		Description: Compare-and-swap. The write only happens while the stored
		pointer still equals currentHash and the stored epoch still equals
		tokenVersion, so of two concurrent rotations of one token only one wins.

		Returns:
		  - bool: Whether this call performed the rotation
		  - error: Persistence failures
	*/
	RotateRefreshToken(context context.Context, accountID, currentHash, nextHash string, tokenVersion int) (bool, error)

	/*
		RevokeAll increments the token epoch and clears the refresh pointer.

		Returns:
		  - int: The new token version
		  - error: NotFound or persistence failures
	*/
	RevokeAll(context context.Context, accountID string) (int, error)
}
