package handlers

import (
	"net/http"
	"time"

	"github.com/you/transitmap/internal/query"
)

// HealthHandler reports service health and snapshot freshness
type HealthHandler struct {
	src query.SnapshotSource
}

// NewHealthHandler creates a new handler reading from the given source
func NewHealthHandler(src query.SnapshotSource) *HealthHandler {
	return &HealthHandler{src: src}
}

// GetHealth handles GET /health with a snapshot availability check
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.src.ActiveSnapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"snapshot":  "unavailable",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"snapshot":  snap.ID,
		"createdAt": snap.CreatedAt,
		"timestamp": time.Now().UTC(),
	})
}
