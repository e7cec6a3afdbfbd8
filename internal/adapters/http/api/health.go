package api

import (
	"net/http"

	"github.com/okian/gridcast/internal/domain/timeline"
)

// TimelineProvider exposes the loaded timeline, nil until loading finishes.
type TimelineProvider interface {
	Timeline() *timeline.Timeline
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	tl TimelineProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(tl TimelineProvider) *HealthHandler {
	return &HealthHandler{tl: tl}
}

type healthResponse struct {
	Status string `json:"status"`
	Events int    `json:"events"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	tl := h.tl.Timeline()
	if tl == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Events: tl.Len()})
}
