package http

import (
	"net/http"

	"github.com/perchsocial/perch/internal/accounts/store"
	"github.com/perchsocial/perch/pkg/httpx"
	"github.com/perchsocial/perch/pkg/slogx"
)

type ReadyzHandler struct {
	Store store.Store
}

// ServeHTTP handles GET /readyz. Ready means the database answers a ping.
func (h *ReadyzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Store.Ping(ctx); err != nil {
		slogx.FromContext(ctx).Error("readiness ping failed", "err", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
