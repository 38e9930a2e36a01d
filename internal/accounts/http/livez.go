package http

import (
	"net/http"
	"time"

	"github.com/perchsocial/perch/pkg/httpx"
)

type LivezHandler struct {
	BuildVersion string
	StartTime    time.Time
}

// ServeHTTP handles GET /livez.
func (h *LivezHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.BuildVersion,
		"uptime_seconds": int64(time.Since(h.StartTime).Seconds()),
	})
}
