// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/apperr"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
)

/*
TestError_AppError verifies status, code and Retry-After are rendered.
*/
func TestError_AppError(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/v1/otp/send", nil)

	respond.Error(recorder, request, apperr.OTPThrottled(42))

	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "42", recorder.Header().Get("Retry-After"))

	var envelope respond.ErrorEnvelope
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&envelope))
	assert.Equal(t, apperr.CodeOTPThrottled, envelope.Code)
}

/*
TestError_HidesInternalCause verifies raw errors never reach the client.
*/
func TestError_HidesInternalCause(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	respond.Error(recorder, request, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "password authentication")
	assert.Empty(t, recorder.Header().Get("Retry-After"))
}

/*
TestOK_Envelope verifies the success envelope shape.
*/
func TestOK_Envelope(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"id":"1"}}`, recorder.Body.String())
}
