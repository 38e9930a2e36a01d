package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/perchsocial/perch/internal/accounts/service"
	"github.com/perchsocial/perch/pkg/httpx"
	"github.com/perchsocial/perch/pkg/slogx"
)

type PasswordForgotHandler struct {
	Credentials *service.CredentialService
}

type passwordForgotRequest struct {
	Email string `json:"email"`
}

// ServeHTTP handles POST /v1/accounts/password/forgot. The response is the
// same whether or not the email belongs to an account.
func (h *PasswordForgotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req passwordForgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.Credentials.RequestReset(ctx, req.Email); err != nil {
		log.Error("reset request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to process reset request")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "If that email is registered, a reset code has been sent",
	})
}

type PasswordResetHandler struct {
	Credentials *service.CredentialService
}

type passwordResetRequest struct {
	Email       string `json:"email"`
	Otp         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ServeHTTP handles POST /v1/accounts/password/reset.
func (h *PasswordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Otp == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"email, otp and new_password are required")
		return
	}

	err := h.Credentials.VerifyReset(ctx, req.Email, req.Otp, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			httpx.WriteError(w, http.StatusNotFound, "account_not_found", "No account for that email")
		case errors.Is(err, service.ErrOtpNotFound),
			errors.Is(err, service.ErrOtpExpired),
			errors.Is(err, service.ErrOtpAlreadyUsed):
			log.Warn("reset rejected", "reason", err)
			httpx.WriteError(w, http.StatusBadRequest, "invalid_otp", "Invalid or expired OTP")
		default:
			writePasswordRotationError(w, log, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}
