// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/fugallabs/gatekeeper/internal/platform/request"
	"github.com/fugallabs/gatekeeper/internal/platform/respond"
	"github.com/fugallabs/gatekeeper/internal/platform/validate"
	"github.com/fugallabs/gatekeeper/pkg/normalize"
)

// Handler exposes the OTP engine over HTTP.
type Handler struct {
	otpService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{otpService: service}
}

// Routes returns a [chi.Router] with the OTP endpoints.
//
// # Endpoints
//   - POST /send   : Issues and emails a code.
//   - POST /verify : Checks a code without registering.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/send", handler.send)
	router.Post("/verify", handler.verify)

	return router
}

type sendRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

/*
Send issues a one-time passcode and emails it.

POST /api/v1/otp/send

Response:
  - 200: Message: Code sent
  - 400: VALIDATION_ERROR: Missing or malformed email
  - 429: OTP_THROTTLED / OTP_RESEND_LIMIT (with Retry-After)
  - 503: UNAVAILABLE: Counter store or mail relay unreachable
*/
func (handler *Handler) send(writer http.ResponseWriter, request *http.Request) {
	var input sendRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	email := normalize.Email(input.Email)

	validator := &validate.Validator{}
	validator.Email(FieldEmail, email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.otpService.SendOTP(request.Context(), email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "OTP sent successfully")
}

/*
Verify checks a one-time passcode and consumes it on success.

POST /api/v1/otp/verify

Response:
  - 200: Message: Code verified
  - 400: OTP_NOT_FOUND / OTP_MISMATCH / VALIDATION_ERROR
  - 429: OTP_VERIFY_LIMIT
*/
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	var input verifyRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	email := normalize.Email(input.Email)
	code := normalize.Code(input.OTP)

	validator := &validate.Validator{}
	validator.Email(FieldEmail, email).
		OTPCode(FieldOTP, code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.otpService.Verify(request.Context(), email, code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "OTP verified successfully")
}
