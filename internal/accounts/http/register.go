package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/perchsocial/perch/internal/accounts/service"
	"github.com/perchsocial/perch/pkg/httpx"
	"github.com/perchsocial/perch/pkg/slogx"
)

type RegisterHandler struct {
	Credentials *service.CredentialService
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// ServeHTTP handles POST /v1/accounts/register.
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	account, err := h.Credentials.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
				"Username must be at least 3 characters, password at least 6, and email must be valid")
		case errors.Is(err, service.ErrDuplicateAccount):
			httpx.WriteError(w, http.StatusConflict, "account_exists",
				"Username or email is already registered")
		default:
			log.Error("registration failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to register account")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
	})
}
