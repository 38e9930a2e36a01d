package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/perchsocial/perch/internal/accounts/service"
	"github.com/perchsocial/perch/pkg/httpx"
	"github.com/perchsocial/perch/pkg/jwtx"
	"github.com/perchsocial/perch/pkg/slogx"
)

type LoginHandler struct {
	Credentials *service.CredentialService
	Signer      *jwtx.Signer
	Issuer      string
	AccessTTL   time.Duration
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	AccountID   string `json:"account_id"`
	Username    string `json:"username"`
}

// ServeHTTP handles POST /v1/accounts/login.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	account, err := h.Credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Same response whether the account exists or not.
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to log in")
		return
	}

	ttl := h.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(account.ID, account.Username, h.Issuer, ttl)
	token, err := h.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign access token", "account_id", account.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to log in")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		AccountID:   account.ID,
		Username:    account.Username,
	})
}
