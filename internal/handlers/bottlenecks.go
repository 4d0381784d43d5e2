package handlers

import (
	"context"
	"net/http"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/models"
)

// BottleneckQuerier defines the interface for bottleneck queries
type BottleneckQuerier interface {
	Bottlenecks(ctx context.Context) ([]models.Bottleneck, error)
	BottlenecksGeoJSON(ctx context.Context) (*geo.FeatureCollection, error)
}

// BottleneckHandler handles HTTP requests for bottleneck data
type BottleneckHandler struct {
	engine BottleneckQuerier
}

// NewBottleneckHandler creates a new handler with the given query engine
func NewBottleneckHandler(engine BottleneckQuerier) *BottleneckHandler {
	return &BottleneckHandler{engine: engine}
}

// GetBottlenecks handles GET /api/bottlenecks
func (h *BottleneckHandler) GetBottlenecks(w http.ResponseWriter, r *http.Request) {
	bottlenecks, err := h.engine.Bottlenecks(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bottlenecks)
}

// GetBottlenecksGeoJSON handles GET /api/bottlenecks/geojson
func (h *BottleneckHandler) GetBottlenecksGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc, err := h.engine.BottlenecksGeoJSON(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fc)
}
