// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements account credentials and the register/login flows.

It owns the per-account long-lived state (password hash, refresh pointer and
token epoch) and turns it into rotating access/refresh token pairs.

Architecture:

  - Service: Orchestrates Register, Login, Refresh, Logout and LogoutAll.
  - Repository: Abstracted account store (Postgres in production).
  - Security: Bcrypt password hashes and HS256 tokens from [sec.Signer].

Credential lifecycle per account:

	Anonymous → Registered(version 0) → [login/refresh rotate the pointer] → LoggedOutEverywhere(version+1)

A refresh token is accepted only while its signature verifies, its embedded
version equals the account's version, and its hash equals the stored pointer.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/ctxutil"
	"github.com/fugallabs/gatekeeper/internal/platform/dberr"
	"github.com/fugallabs/gatekeeper/internal/platform/metrics"
	"github.com/fugallabs/gatekeeper/internal/platform/sec"
	"github.com/fugallabs/gatekeeper/internal/platform/validate"
	"github.com/fugallabs/gatekeeper/pkg/normalize"
	"github.com/fugallabs/gatekeeper/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer signs and verifies the two token classes.
type TokenIssuer interface {
	SignAccess(userID, username, role string) (sec.Token, error)
	SignRefresh(userID string, tokenVersion int) (sec.Token, error)
	VerifyRefresh(tokenString string) (*sec.RefreshClaims, error)
}

// OTPVerifier proves control of an email address during registration.
type OTPVerifier interface {
	Verify(context context.Context, email, code string) error
}

// Service implements account credential use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or token rotation must be reviewed by the security team.
type Service struct {
	accountRepository AccountRepository
	tokenIssuer       TokenIssuer
	otpVerifier       OTPVerifier
	metrics           *metrics.Metrics
}

// NewService constructs a new [Service]. recorder may be nil.
func NewService(accounts AccountRepository, tokens TokenIssuer, otp OTPVerifier, recorder *metrics.Metrics) *Service {
	return &Service{
		accountRepository: accounts,
		tokenIssuer:       tokens,
		otpVerifier:       otp,
		metrics:           recorder,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
	OTP      string
}

/*
Register creates an account for an email whose ownership was just proven by OTP.

Description: Rejects taken identities, hashes the password, consumes the OTP,
persists the account at token version 0 and issues its first token pair.
Every local check runs before the OTP is consumed.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Session: Token pair and created account
  - error: Conflict, any OTP error unchanged, or Unavailable
*/
func (service *Service) Register(context context.Context, input RegisterInput) (session *Session, err error) {
	defer func() { service.metrics.AuthOperation(OperationRegister, err) }()

	email := normalize.Email(input.Email)
	username := normalize.Username(input.Username)

	// 1. Identity checks come first so a taken email never burns an OTP attempt.
	if err := service.ensureAvailable(context, email, username); err != nil {
		return nil, err
	}

	// 2. bcrypt rejects more than 72 bytes; hashing must not fail once the OTP is spent.
	if len(input.Password) > PasswordMaxBytes {
		return nil, validate.RequiredError(FieldPassword, fmt.Sprintf("Maximum %d bytes", PasswordMaxBytes))
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	// 3. Ownership proof. The OTP engine's error kind reaches the caller as-is.
	if err := service.otpVerifier.Verify(context, email, input.OTP); err != nil {
		return nil, err
	}

	account := &Account{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		TokenVersion: 0,
		Role:         sec.RoleUser,
	}

	// 4. A concurrent registration may still win the unique index here.
	if err := service.accountRepository.Create(context, account); err != nil {
		return nil, err
	}

	session, err = service.startSession(context, account)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_registered",
		slog.String("account_id", account.ID),
	)

	return session, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Credential string // Email or username
	Password   string
}

/*
Login validates credentials and issues a fresh token pair.

Description: An unknown credential and a wrong password produce the same
error, and both run one bcrypt comparison. The new refresh token replaces the
stored pointer, so the previous one stops working immediately.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: Token pair and account
  - error: InvalidCredentials or Unavailable
*/
func (service *Service) Login(context context.Context, input LoginInput) (session *Session, err error) {
	defer func() { service.metrics.AuthOperation(OperationLogin, err) }()

	account, err := service.accountRepository.FindByLogin(context, normalizeCredential(input.Credential))
	if errors.Is(err, dberr.ErrNotFound) {
		sec.BurnPasswordCheck(input.Password)
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	return service.startSession(context, account)
}

// # Token Rotation

/*
Refresh exchanges a refresh token for a new pair and retires the presented one.

Description: The account is located by the stored pointer, not by the token's
claims, and the pointer moves with a compare-and-swap. A replayed or already
rotated token therefore fails even when its signature is still valid.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *Session: New token pair
  - error: InvalidToken for every rejection reason, or Unavailable
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (session *Session, err error) {
	defer func() { service.metrics.AuthOperation(OperationRefresh, err) }()

	logger := ctxutil.GetLogger(context)

	if refreshToken == "" {
		return nil, apperr.InvalidToken()
	}

	// 1. Signature, audience and expiry.
	claims, err := service.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeConfiguration) {
			return nil, err
		}
		logger.DebugContext(context, "refresh_rejected", slog.String("reason", "signature"))
		return nil, apperr.InvalidToken()
	}

	// 2. The presented token must be the one the account currently points at.
	presentedHash := sec.HashToken(refreshToken)
	account, err := service.accountRepository.FindByRefreshToken(context, presentedHash)
	if errors.Is(err, dberr.ErrNotFound) {
		logger.DebugContext(context, "refresh_rejected", slog.String("reason", "pointer"))
		return nil, apperr.InvalidToken()
	}
	if err != nil {
		return nil, err
	}

	// 3. Same subject, same epoch.
	if account.ID != claims.UserID || account.TokenVersion != claims.TokenVersion {
		logger.DebugContext(context, "refresh_rejected", slog.String("reason", "version"))
		return nil, apperr.InvalidToken()
	}

	session, err = service.issuePair(account)
	if err != nil {
		return nil, err
	}

	// 4. Move the pointer. Losing the swap means a concurrent refresh already used this token.
	nextHash := sec.HashToken(session.RefreshToken)
	rotated, err := service.accountRepository.RotateRefreshToken(context, account.ID, presentedHash, nextHash, account.TokenVersion)
	if err != nil {
		return nil, err
	}
	if !rotated {
		logger.DebugContext(context, "refresh_rejected", slog.String("reason", "rotated"))
		return nil, apperr.InvalidToken()
	}
	account.RefreshTokenHash = nextHash

	return session, nil
}

// # Revocation

/*
Logout clears the account's refresh pointer.

Description: Access tokens already issued stay valid until they expire.
*/
func (service *Service) Logout(context context.Context, accountID string) (err error) {
	defer func() { service.metrics.AuthOperation(OperationLogout, err) }()

	if err := service.accountRepository.SaveRefreshToken(context, accountID, ""); err != nil {
		return err
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_logged_out")
	return nil
}

/*
LogoutAll invalidates every refresh token ever issued to the account.

Description: Increments the token version and clears the pointer in one write.
Tokens minted under the old version fail the epoch check even if they were
never the stored pointer.
*/
func (service *Service) LogoutAll(context context.Context, accountID string) (err error) {
	defer func() { service.metrics.AuthOperation(OperationLogoutAll, err) }()

	version, err := service.accountRepository.RevokeAll(context, accountID)
	if err != nil {
		return err
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_logged_out_everywhere",
		slog.Int("token_version", version),
	)
	return nil
}

// Me returns the public projection of the authenticated account.
func (service *Service) Me(context context.Context, accountID string) (*Account, error) {
	account, err := service.accountRepository.FindByID(context, accountID)
	if errors.Is(err, dberr.ErrNotFound) {
		return nil, apperr.NotFound("Account")
	}
	return account, err
}

// # Internals

// ensureAvailable rejects an email or username that already belongs to an account.
func (service *Service) ensureAvailable(context context.Context, email, username string) error {
	_, err := service.accountRepository.FindByEmail(context, email)
	if err == nil {
		return apperr.Conflict("Email is already registered")
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return err
	}

	_, err = service.accountRepository.FindByUsername(context, username)
	if err == nil {
		return apperr.Conflict("Username is already taken")
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return err
	}

	return nil
}

// startSession issues a pair and overwrites the stored refresh pointer with it.
func (service *Service) startSession(context context.Context, account *Account) (*Session, error) {
	session, err := service.issuePair(account)
	if err != nil {
		return nil, err
	}

	tokenHash := sec.HashToken(session.RefreshToken)
	if err := service.accountRepository.SaveRefreshToken(context, account.ID, tokenHash); err != nil {
		return nil, err
	}
	account.RefreshTokenHash = tokenHash

	return session, nil
}

// issuePair signs an access and a refresh token for the account's current epoch.
func (service *Service) issuePair(account *Account) (*Session, error) {
	access, err := service.tokenIssuer.SignAccess(account.ID, account.Username, string(account.Role))
	if err != nil {
		return nil, signingError(err)
	}

	refresh, err := service.tokenIssuer.SignRefresh(account.ID, account.TokenVersion)
	if err != nil {
		return nil, signingError(err)
	}

	return &Session{
		AccessToken:           access.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		Account:               account,
	}, nil
}

// signingError keeps configuration errors visible and reports any other signer failure as Unavailable.
func signingError(err error) error {
	if apperr.IsAppError(err) {
		return err
	}
	return apperr.Unavailable(fmt.Errorf("auth_service_token_signing_failed: %w", err))
}

// normalizeCredential applies the email or username canonical form.
func normalizeCredential(credential string) string {
	if strings.Contains(credential, "@") {
		return normalize.Email(credential)
	}
	return normalize.Username(credential)
}
