package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/perchsocial/perch/internal/accounts/service"
	"github.com/perchsocial/perch/pkg/httpx"
	"github.com/perchsocial/perch/pkg/slogx"
)

type PasswordChangeHandler struct {
	Credentials *service.CredentialService
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ServeHTTP handles POST /v1/accounts/password (bearer-authenticated).
func (h *PasswordChangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Injected by AuthnMiddleware
	accountID, ok := ctx.Value(httpx.CtxKeyAccountID).(string)
	if !ok || accountID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing authenticated account")
		return
	}

	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"current_password and new_password are required")
		return
	}

	err := h.Credentials.ChangePassword(ctx, accountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writePasswordRotationError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// writePasswordRotationError maps rotation failures shared by the change and
// reset paths. Same-password and reused-password rejections deliberately get
// one uniform message; the distinct kinds stay in the logs.
func writePasswordRotationError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Password must be at least 6 characters")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Current password is incorrect")
	case errors.Is(err, service.ErrSamePassword), errors.Is(err, service.ErrPasswordReused):
		log.Warn("password rotation rejected", "reason", err)
		httpx.WriteError(w, http.StatusBadRequest, "password_rejected", "Please choose a different password")
	case errors.Is(err, service.ErrConcurrentModification):
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"Account was modified concurrently, please try again")
	default:
		log.Error("password rotation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update password")
	}
}
