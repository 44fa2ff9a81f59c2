// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/constants"
	"github.com/fugallabs/gatekeeper/internal/platform/ctxutil"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
	"github.com/fugallabs/gatekeeper/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify access tokens in middleware.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the access token of a request.
//
// # Flow
//  1. Read 'Authorization: Bearer <token>', falling back to the access_token cookie.
//  2. If neither is present, the request proceeds as anonymous.
//  3. A bearer token that fails verification is a 401. A cookie token that
//     fails is dropped and the request proceeds as anonymous, so a stale
//     cookie never locks a browser out of /login or /refresh.
//  4. Inject [*sec.AuthClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			tokenStr, source := bearerToken(request)

			// ── 1. Format Validation ──────────────────────────────────────────
			if source == sourceMalformed {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 2. Anonymous Access ───────────────────────────────────────────
			if tokenStr == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				if source == sourceCookie {
					next.ServeHTTP(writer, request)
					return
				}
				respond.Error(writer, request, apperr.InvalidToken())
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			if recorder, isRecorder := writer.(accountRecorder); isRecorder {
				recorder.recordAccount(claims.UserID)
			}

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// tokenSource tells where the access token of a request came from.
type tokenSource int

const (
	sourceNone tokenSource = iota
	sourceHeader
	sourceCookie
	sourceMalformed
)

// bearerToken returns the presented access token and where it was found.
func bearerToken(request *http.Request) (string, tokenSource) {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
			return cookie.Value, sourceCookie
		}
		return "", sourceNone
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", sourceMalformed
	}
	return parts[1], sourceHeader
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// It implies [RequireAuth], so mounting both is unnecessary.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !sec.UserRole(claims.Role).AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
