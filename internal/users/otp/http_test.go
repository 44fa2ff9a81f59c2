// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
	"github.com/fugallabs/gatekeeper/internal/users/otp"
)

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(recorder, request)
	return recorder
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&envelope))
	return envelope.Code
}

/*
TestHandler_SendAndVerify walks the happy path over HTTP.
*/
func TestHandler_SendAndVerify(t *testing.T) {
	f := newFixture(t)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	routes := otp.NewHandler(f.service).Routes()

	recorder := post(t, routes, "/send", `{"email":"Ada@Example.com"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"message":"OTP sent successfully"}`, recorder.Body.String())

	code := f.storedCode(t, testEmail)
	recorder = post(t, routes, "/verify", `{"email":"ada@example.com","otp":"`+code+`"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"message":"OTP verified successfully"}`, recorder.Body.String())
}

/*
TestHandler_SendThrottled verifies the Retry-After header on a second send.
*/
func TestHandler_SendThrottled(t *testing.T) {
	f := newFixture(t)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	routes := otp.NewHandler(f.service).Routes()

	require.Equal(t, http.StatusOK, post(t, routes, "/send", `{"email":"ada@example.com"}`).Code)

	recorder := post(t, routes, "/send", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "60", recorder.Header().Get("Retry-After"))
	assert.Equal(t, apperr.CodeOTPThrottled, errorCode(t, recorder))
}

/*
TestHandler_InputValidation verifies malformed bodies never reach the engine.
*/
func TestHandler_InputValidation(t *testing.T) {
	f := newFixture(t)
	routes := otp.NewHandler(f.service).Routes()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"invalid_json", "/send", `{"email":`},
		{"missing_email", "/send", `{}`},
		{"malformed_email", "/send", `{"email":"not-an-email"}`},
		{"short_code", "/verify", `{"email":"ada@example.com","otp":"12345"}`},
		{"alpha_code", "/verify", `{"email":"ada@example.com","otp":"12a456"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := post(t, routes, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, apperr.CodeValidation, errorCode(t, recorder))
		})
	}

	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

/*
TestHandler_VerifyWithoutCode verifies the not-found path maps to 400.
*/
func TestHandler_VerifyWithoutCode(t *testing.T) {
	f := newFixture(t)
	routes := otp.NewHandler(f.service).Routes()

	recorder := post(t, routes, "/verify", `{"email":"ada@example.com","otp":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, apperr.CodeOTPNotFound, errorCode(t, recorder))
}
