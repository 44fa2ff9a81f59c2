// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/dberr"
)

// # Constraint Names

const (
	constraintAccountEmail    = "uq_account_email"
	constraintAccountUsername = "uq_account_username"
)

// accountColumns is the projection shared by every account lookup.
// Nullable columns are coalesced so they scan into plain strings.
const accountColumns = `
	id, name, username, email, passwordhash,
	COALESCE(refreshtokenhash, ''), tokenversion, role,
	COALESCE(avatarurl, ''), COALESCE(bio, ''), createdat, updatedat`

// # Account Repository

// PostgresAccountRepository implements [AccountRepository] using pgx.
//
// Every call is bounded by the configured store timeout; an expired deadline
// surfaces as [apperr.Unavailable], never as "not found".
type PostgresAccountRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool, timeout time.Duration) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool, timeout: timeout}
}

/*
Create persists a new account record into the users.account table.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: Conflict naming the taken identity, or Unavailable
*/
func (repository *PostgresAccountRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO users.account (
			id, name, username, email, passwordhash, tokenversion, role, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	context, cancel := repository.bounded(context)
	defer cancel()

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Name,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.TokenVersion,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if constraint, ok := dberr.UniqueViolation(err); ok {
		return identityConflict(constraint, err)
	}
	return dberr.Wrap(err, "postgres_account_repo_create_failed")
}

// FindByID retrieves an account by its primary key.
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users.account WHERE id = $1`
	return repository.findOne(context, "postgres_account_repo_find_by_id_failed", query, id)
}

// FindByEmail retrieves an account by its unique email address.
func (repository *PostgresAccountRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users.account WHERE email = $1`
	return repository.findOne(context, "postgres_account_repo_find_by_email_failed", query, email)
}

// FindByUsername retrieves an account by its unique username.
func (repository *PostgresAccountRepository) FindByUsername(context context.Context, username string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users.account WHERE username = $1`
	return repository.findOne(context, "postgres_account_repo_find_by_username_failed", query, username)
}

/*
FindByLogin retrieves an account by email or username.

Description: Emails contain '@' and usernames cannot, so at most one row matches.
*/
func (repository *PostgresAccountRepository) FindByLogin(context context.Context, credential string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users.account WHERE email = $1 OR username = $1 LIMIT 1`
	return repository.findOne(context, "postgres_account_repo_find_by_login_failed", query, credential)
}

// FindByRefreshToken retrieves the account whose refresh pointer equals tokenHash.
func (repository *PostgresAccountRepository) FindByRefreshToken(context context.Context, tokenHash string) (*Account, error) {
	if tokenHash == "" {
		return nil, dberr.ErrNotFound
	}
	const query = `SELECT ` + accountColumns + ` FROM users.account WHERE refreshtokenhash = $1`
	return repository.findOne(context, "postgres_account_repo_find_by_refresh_token_failed", query, tokenHash)
}

/*
SaveRefreshToken overwrites the refresh pointer. An empty hash stores NULL.

Parameters:
  - context: context.Context
  - accountID: string
  - tokenHash: string

Returns:
  - error: NotFound if the account does not exist
*/
func (repository *PostgresAccountRepository) SaveRefreshToken(context context.Context, accountID, tokenHash string) error {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = NULLIF($2, ''), updatedat = $3
		WHERE id = $1`

	context, cancel := repository.bounded(context)
	defer cancel()

	tag, err := repository.pool.Exec(context, query, accountID, tokenHash, time.Now().UTC())
	if err != nil {
		return dberr.Wrap(err, "postgres_account_repo_save_refresh_token_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

/*
RotateRefreshToken swaps the refresh pointer only if it still holds currentHash.

Parameters:
  - context: context.Context
  - accountID: string
  - currentHash: string (pointer the caller observed)
  - nextHash: string (pointer to install)
  - tokenVersion: int (epoch the caller observed)

Returns:
  - bool: false when another writer moved the pointer or the epoch first
  - error: Unavailable on storage failures
*/
func (repository *PostgresAccountRepository) RotateRefreshToken(context context.Context, accountID, currentHash, nextHash string, tokenVersion int) (bool, error) {
	const query = `
		UPDATE users.account
		SET refreshtokenhash = $3, updatedat = $5
		WHERE id = $1 AND refreshtokenhash = $2 AND tokenversion = $4`

	context, cancel := repository.bounded(context)
	defer cancel()

	tag, err := repository.pool.Exec(context, query, accountID, currentHash, nextHash, tokenVersion, time.Now().UTC())
	if err != nil {
		return false, dberr.Wrap(err, "postgres_account_repo_rotate_refresh_token_failed")
	}
	return tag.RowsAffected() == 1, nil
}

/*
RevokeAll bumps the token epoch and clears the refresh pointer in one statement.

Returns:
  - int: The new token version
  - error: NotFound if the account does not exist
*/
func (repository *PostgresAccountRepository) RevokeAll(context context.Context, accountID string) (int, error) {
	const query = `
		UPDATE users.account
		SET tokenversion = tokenversion + 1, refreshtokenhash = NULL, updatedat = $2
		WHERE id = $1
		RETURNING tokenversion`

	context, cancel := repository.bounded(context)
	defer cancel()

	var version int
	err := repository.pool.QueryRow(context, query, accountID, time.Now().UTC()).Scan(&version)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres_account_repo_revoke_all_failed")
	}
	return version, nil
}

// # Internals

func (repository *PostgresAccountRepository) bounded(parent context.Context) (context.Context, context.CancelFunc) {
	if repository.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, repository.timeout)
}

func (repository *PostgresAccountRepository) findOne(parent context.Context, action, query string, argument string) (*Account, error) {
	ctx, cancel := repository.bounded(parent)
	defer cancel()

	account, err := scanAccount(repository.pool.QueryRow(ctx, query, argument))
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}
	return account, nil
}

// scanAccount hydrates an [Account] from a row selected with accountColumns.
func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.RefreshTokenHash,
		&account.TokenVersion,
		&account.Role,
		&account.AvatarURL,
		&account.Bio,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// identityConflict turns a unique violation into a client-safe Conflict.
func identityConflict(constraint string, cause error) error {
	var conflict *apperr.AppError
	switch constraint {
	case constraintAccountEmail:
		conflict = apperr.Conflict("Email is already registered")
	case constraintAccountUsername:
		conflict = apperr.Conflict("Username is already taken")
	default:
		conflict = apperr.Conflict("Account already exists")
	}
	conflict.Cause = errors.Join(errors.New(constraint), cause)
	return conflict
}
