// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/fugallabs/gatekeeper/internal/platform/sec"
)

// # Domain Entities

// Account is the durable credential record of a registered member.
//
// # Credential State
//
// RefreshTokenHash points at the single refresh token currently accepted for
// the account. Login and refresh overwrite it. TokenVersion is the revocation
// epoch embedded in every refresh token; bumping it invalidates all of them.
// Neither field, nor the password hash, is ever serialized.
type Account struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Username         string       `json:"username"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"`
	RefreshTokenHash string       `json:"-"`
	TokenVersion     int          `json:"-"`
	Role             sec.UserRole `json:"role"`
	AvatarURL        string       `json:"avatar_url,omitempty"`
	Bio              string       `json:"bio,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Session is a freshly issued token pair together with the account it belongs to.
type Session struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Account               *Account
}
