// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/middleware"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
	"github.com/fugallabs/gatekeeper/internal/users/auth"
)

type sessionBody struct {
	Data struct {
		AccessToken  string         `json:"access_token"`
		RefreshToken string         `json:"refresh_token"`
		TokenType    string         `json:"token_type"`
		Account      map[string]any `json:"account"`
	} `json:"data"`
}

func newRouter(f *fixture) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(f.signer))
	router.Mount("/auth", auth.NewHandler(f.service, true).Routes())
	return router
}

func do(t *testing.T, handler http.Handler, method, path, body string, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, p := range prepare {
		p(request)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func decodeSession(t *testing.T, recorder *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	return body
}

func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

const registerBody = `{"name":"Ada Lovelace","username":"ada","email":"ada@example.com","password":"correct-horse","otp":"123456"}`

/*
TestHandler_RegisterSetsCookies verifies the body and the mirrored HttpOnly cookies.
*/
func TestHandler_RegisterSetsCookies(t *testing.T) {
	f := newFixture(t)
	f.otp.On("Verify", mock.Anything, "ada@example.com", "123456").Return(nil)
	router := newRouter(f)

	recorder := do(t, router, http.MethodPost, "/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, recorder.Code)

	body := decodeSession(t, recorder)
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.Equal(t, "Bearer", body.Data.TokenType)
	assert.Equal(t, "ada", body.Data.Account["username"])
	assert.NotContains(t, body.Data.Account, "password_hash")

	for _, name := range []string{"access_token", "refresh_token"} {
		cookie := findCookie(recorder, name)
		require.NotNil(t, cookie, name)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	}
	assert.Equal(t, body.Data.RefreshToken, findCookie(recorder, "refresh_token").Value)
}

/*
TestHandler_RegisterValidation verifies malformed input is rejected before the OTP check.
*/
func TestHandler_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	tests := []struct {
		name string
		body string
	}{
		{"short_password", `{"name":"Ada","username":"ada","email":"ada@example.com","password":"short","otp":"123456"}`},
		{"bad_username", `{"name":"Ada","username":"a!","email":"ada@example.com","password":"correct-horse","otp":"123456"}`},
		{"bad_otp", `{"name":"Ada","username":"ada","email":"ada@example.com","password":"correct-horse","otp":"12345"}`},
		{"missing_name", `{"username":"ada","email":"ada@example.com","password":"correct-horse","otp":"123456"}`},
		{"multibyte_password_over_72_bytes", `{"name":"Ada","username":"ada","email":"ada@example.com","password":"` + strings.Repeat("é", 40) + `","otp":"123456"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(t, router, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}

	f.otp.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

/*
TestHandler_RegisterNormalizesBeforeValidation verifies padded and mixed-case identities are accepted.
*/
func TestHandler_RegisterNormalizesBeforeValidation(t *testing.T) {
	f := newFixture(t)
	f.otp.On("Verify", mock.Anything, "ada@example.com", "123456").Return(nil).Once()
	router := newRouter(f)

	recorder := do(t, router, http.MethodPost, "/auth/register",
		`{"name":"Ada Lovelace","username":" Ada ","email":" Ada@Example.com ","password":"correct-horse","otp":"123456"}`)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	body := decodeSession(t, recorder)
	assert.Equal(t, "ada", body.Data.Account["username"])
	assert.Equal(t, "ada@example.com", body.Data.Account["email"])
	f.otp.AssertExpectations(t)
}

/*
TestHandler_RefreshFromCookie verifies the cookie fallback and single use.
*/
func TestHandler_RefreshFromCookie(t *testing.T) {
	f := newFixture(t)
	session := f.register(t)
	router := newRouter(f)

	withCookie := func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: session.RefreshToken})
	}

	recorder := do(t, router, http.MethodPost, "/auth/refresh", "", withCookie)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEqual(t, session.RefreshToken, decodeSession(t, recorder).Data.RefreshToken)

	recorder = do(t, router, http.MethodPost, "/auth/refresh", "", withCookie)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	var envelope respond.ErrorEnvelope
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&envelope))
	assert.Equal(t, apperr.CodeInvalidToken, envelope.Code)
}

/*
TestHandler_RefreshWithoutToken verifies a missing token is a token rejection.
*/
func TestHandler_RefreshWithoutToken(t *testing.T) {
	f := newFixture(t)

	recorder := do(t, newRouter(f), http.MethodPost, "/auth/refresh", `{}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestHandler_ProtectedRoutes verifies /me and /logout-all require an access token.
*/
func TestHandler_ProtectedRoutes(t *testing.T) {
	f := newFixture(t)
	session := f.register(t)
	router := newRouter(f)

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/auth/me", "").Code)

	recorder := do(t, router, http.MethodGet, "/auth/me", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"username":"ada"`)

	recorder = do(t, router, http.MethodPost, "/auth/logout-all", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, recorder.Code)

	cleared := findCookie(recorder, "refresh_token")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	recorder = do(t, router, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
