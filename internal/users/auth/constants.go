// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Credential Constraints

const (
	// PasswordMinLength is the shortest password accepted at registration.
	PasswordMinLength = 8

	// PasswordMaxBytes is bcrypt's input limit, counted in UTF-8 bytes.
	PasswordMaxBytes = 72

	// NameMaxLength caps the display name.
	NameMaxLength = 100

	// TokenType is the scheme clients must use when presenting the access token.
	TokenType = "Bearer"
)

// # Operation Names
//
// Used as the "operation" label of the auth metrics.

const (
	OperationRegister  = "register"
	OperationLogin     = "login"
	OperationRefresh   = "refresh"
	OperationLogout    = "logout"
	OperationLogoutAll = "logout_all"
)

// # Field Identifiers

// Field names for validation and JSON payloads in the authentication domain.
const (
	FieldName         = "name"
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldOTP          = "otp"
	FieldCredential   = "credential"
	FieldRefreshToken = "refresh_token"
)
