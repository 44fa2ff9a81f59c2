// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/constants"
	"github.com/fugallabs/gatekeeper/internal/platform/middleware"
	requestutil "github.com/fugallabs/gatekeeper/internal/platform/request"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
	"github.com/fugallabs/gatekeeper/internal/platform/validate"
	"github.com/fugallabs/gatekeeper/pkg/normalize"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Cookies
//
// Every issued pair is returned in the body and mirrored as two HttpOnly
// cookies. secureCookies adds the Secure attribute and should be set outside
// development.
type Handler struct {
	authService   *Service
	secureCookies bool
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register   : Creates an account after OTP verification.
//   - POST /login      : Authenticates and returns a token pair.
//   - POST /refresh    : Rotates the refresh token.
//   - POST /logout     : Clears the refresh pointer (auth).
//   - POST /logout-all : Revokes every refresh token (auth).
//   - GET  /me         : Current account (auth).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/logout-all", handler.logoutAll)
		r.Get("/me", handler.me)
	})

	return router
}

// # Payloads

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type loginRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// sessionResponse is the transport form of a [Session].
type sessionResponse struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	Account               *Account  `json:"account"`
}

func newSessionResponse(session *Session) sessionResponse {
	return sessionResponse{
		AccessToken:           session.AccessToken,
		AccessTokenExpiresAt:  session.AccessTokenExpiresAt,
		RefreshToken:          session.RefreshToken,
		RefreshTokenExpiresAt: session.RefreshTokenExpiresAt,
		TokenType:             TokenType,
		Account:               session.Account,
	}
}

/*
Register handles the creation of a new account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Name, Username, Email, Password, OTP)

Response:
  - 201: Session: Token pair and created account
  - 400: VALIDATION_ERROR / OTP_NOT_FOUND / OTP_MISMATCH
  - 409: CONFLICT: Username or Email already exists
  - 429: OTP_VERIFY_LIMIT
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.Username = normalize.Username(input.Username)
	input.Email = normalize.Email(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, NameMaxLength).
		Username(FieldUsername, input.Username).
		Email(FieldEmail, input.Email).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxBytes(FieldPassword, input.Password, PasswordMaxBytes).
		OTPCode(FieldOTP, input.OTP)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Name:     input.Name,
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		OTP:      input.OTP,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.Created(writer, newSessionResponse(session))
}

/*
Login authenticates an account and establishes a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Credential, Password)

Response:
  - 200: Session: Token pair and account
  - 401: INVALID_CREDENTIALS: Unknown account or wrong password
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCredential, input.Credential)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Credential: input.Credential,
		Password:   input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.OK(writer, newSessionResponse(session))
}

/*
Refresh rotates the refresh token.

POST /api/v1/auth/refresh

Description: The token is read from the body, falling back to the
refresh_token cookie when the body omits it.

Response:
  - 200: Session: New token pair
  - 401: INVALID_TOKEN: Missing, expired, rotated or revoked token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	// An empty body is fine; the cookie may carry the token.
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	token := input.RefreshToken
	if token == "" {
		token = requestutil.Cookie(request, constants.RefreshTokenCookieName)
	}
	if token == "" {
		respond.Error(writer, request, apperr.InvalidToken())
		return
	}

	session, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)
	respond.OK(writer, newSessionResponse(session))
}

/*
Logout terminates the current refresh lineage.

POST /api/v1/auth/logout

Response:
  - 200: Message: Logged out
  - 401: UNAUTHORIZED: Authentication required
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookies(writer)
	respond.Message(writer, "Logged out successfully")
}

/*
LogoutAll revokes every refresh token of the account.

POST /api/v1/auth/logout-all

Response:
  - 200: Message: Logged out on all devices
  - 401: UNAUTHORIZED: Authentication required
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.LogoutAll(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookies(writer)
	respond.Message(writer, "Logged out from all devices")
}

// me returns the authenticated account. GET /api/v1/auth/me
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.Me(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

// # Cookies

func (handler *Handler) setSessionCookies(writer http.ResponseWriter, session *Session) {
	http.SetCookie(writer, handler.cookie(constants.AccessTokenCookieName, session.AccessToken, session.AccessTokenExpiresAt))
	http.SetCookie(writer, handler.cookie(constants.RefreshTokenCookieName, session.RefreshToken, session.RefreshTokenExpiresAt))
}

func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		cookie := handler.cookie(name, "", time.Time{})
		cookie.MaxAge = -1
		http.SetCookie(writer, cookie)
	}
}

func (handler *Handler) cookie(name, value string, expiresAt time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.AuthCookiePath,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !expiresAt.IsZero() {
		cookie.Expires = expiresAt
	}
	return cookie
}
