// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [auth.TokenIssuer] interface.
//
// # Token Classes
//
// Access and refresh tokens are signed in two independent contexts. Each class
// has its own HMAC secret, lifetime and audience, so a token of one class can
// never be accepted as the other even if the secrets leaked in the same breach.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/pkg/uuid"
)

// # Token Kinds

// TokenKind identifies one of the two signing contexts.
type TokenKind string

const (
	// KindAccess tokens authorize individual requests.
	KindAccess TokenKind = "access"

	// KindRefresh tokens are only exchanged for a new token pair.
	KindRefresh TokenKind = "refresh"
)

// # Verification Errors

var (
	// ErrTokenExpired is returned when the signature is valid but the token is past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for bad signatures, malformed tokens and wrong audiences.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// # Claims

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the UserID, Username, and Role directly inside the JWT,
// the [middleware.Authenticate] can reconstruct the active user context
// WITHOUT querying the database on every single API request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Role     string `json:"rol"`
}

// RefreshClaims represents the payload embedded inside a refresh token.
//
// TokenVersion is the account's revocation epoch at issuance time. Bumping the
// epoch on the account invalidates every refresh token minted before it.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID       string `json:"uid"`
	TokenVersion int    `json:"ver"`
}

// Token is a freshly signed credential together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// # Signer

// SignerConfig carries the secrets and lifetimes of both token classes.
type SignerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// signingContext is one independent (secret, lifetime, audience) triple.
type signingContext struct {
	secret   []byte
	ttl      time.Duration
	audience string
}

// Signer signs and verifies access and refresh tokens using HS256.
//
// A Signer holds no mutable state after construction and is safe for
// concurrent use.
type Signer struct {
	access  signingContext
	refresh signingContext
	issuer  string
	now     func() time.Time
}

// NewSigner validates the configuration and builds a [Signer].
//
// It returns an [apperr.ConfigurationError] when a secret is missing or when
// both classes share one secret. Callers are expected to treat this as fatal
// at startup.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.AccessSecret == "" {
		return nil, apperr.ConfigurationError("sec: access token secret is not configured")
	}
	if cfg.RefreshSecret == "" {
		return nil, apperr.ConfigurationError("sec: refresh token secret is not configured")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, apperr.ConfigurationError("sec: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, apperr.ConfigurationError("sec: token lifetimes must be positive")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Signer{
		access:  signingContext{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL, audience: string(KindAccess)},
		refresh: signingContext{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL, audience: string(KindRefresh)},
		issuer:  cfg.Issuer,
		now:     now,
	}, nil
}

// SignAccess creates a signed access token for an account.
func (signer *Signer) SignAccess(userID, username, role string) (Token, error) {
	currentTime := signer.clock()
	expiresAt := currentTime.Add(signer.access.ttl)

	claims := AuthClaims{
		RegisteredClaims: signer.registered(signer.access, userID, currentTime, expiresAt),
		UserID:           userID,
		Username:         username,
		Role:             role,
	}

	value, err := signer.sign(signer.access, claims)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, ExpiresAt: expiresAt}, nil
}

// SignRefresh creates a signed refresh token bound to the account's current tokenVersion.
func (signer *Signer) SignRefresh(userID string, tokenVersion int) (Token, error) {
	currentTime := signer.clock()
	expiresAt := currentTime.Add(signer.refresh.ttl)

	claims := RefreshClaims{
		RegisteredClaims: signer.registered(signer.refresh, userID, currentTime, expiresAt),
		UserID:           userID,
		TokenVersion:     tokenVersion,
	}

	value, err := signer.sign(signer.refresh, claims)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, ExpiresAt: expiresAt}, nil
}

// VerifyAccess checks the signature, audience and expiry of an access token.
func (signer *Signer) VerifyAccess(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := signer.parse(signer.access, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyToken is an alias of [Signer.VerifyAccess] for the HTTP middleware.
func (signer *Signer) VerifyToken(tokenString string) (*AuthClaims, error) {
	return signer.VerifyAccess(tokenString)
}

// VerifyRefresh checks the signature, audience and expiry of a refresh token.
func (signer *Signer) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := signer.parse(signer.refresh, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// # Internals

func (signer *Signer) clock() time.Time {
	if signer.now == nil {
		return time.Now()
	}
	return signer.now()
}

func (signer *Signer) registered(signing signingContext, subject string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.New(),
		Subject:   subject,
		Issuer:    signer.issuer,
		Audience:  jwt.ClaimStrings{signing.audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (signer *Signer) sign(signing signingContext, claims jwt.Claims) (string, error) {
	// A zero-value Signer reaches here without secrets; surface it as a 500.
	if len(signing.secret) == 0 {
		return "", apperr.ConfigurationError(fmt.Sprintf("sec: %s token secret is not configured", signing.audience))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(signing.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign %s token: %w", signing.audience, err)
	}

	return signedToken, nil
}

func (signer *Signer) parse(signing signingContext, tokenString string, claims jwt.Claims) error {
	if len(signing.secret) == 0 {
		return apperr.ConfigurationError(fmt.Sprintf("sec: %s token secret is not configured", signing.audience))
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(signing.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(signer.clock),
	}
	if signer.issuer != "" {
		options = append(options, jwt.WithIssuer(signer.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return signing.secret, nil
	}, options...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}
