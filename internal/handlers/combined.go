package handlers

import (
	"context"
	"net/http"

	"github.com/you/transitmap/internal/query"
)

// CombinedQuerier defines the interface for the combined query
type CombinedQuerier interface {
	Combined(ctx context.Context, region string) (*query.CombinedResult, error)
}

// CombinedHandler handles HTTP requests for the combined collections view
type CombinedHandler struct {
	engine CombinedQuerier
}

// NewCombinedHandler creates a new handler with the given query engine
func NewCombinedHandler(engine CombinedQuerier) *CombinedHandler {
	return &CombinedHandler{engine: engine}
}

// GetCombined handles GET /api/combined
// Runs all four collections under one shared region filter.
func (h *CombinedHandler) GetCombined(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Combined(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
