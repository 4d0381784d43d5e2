package handlers

import (
	"context"
	"net/http"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/models"
)

// LowIncomeQuerier defines the interface for low-income tract queries
type LowIncomeQuerier interface {
	LowIncome(ctx context.Context) ([]models.LowIncomeTract, error)
	LowIncomeGeoJSON(ctx context.Context) (*geo.FeatureCollection, error)
}

// LowIncomeHandler handles HTTP requests for low-income tract data
type LowIncomeHandler struct {
	engine LowIncomeQuerier
}

// NewLowIncomeHandler creates a new handler with the given query engine
func NewLowIncomeHandler(engine LowIncomeQuerier) *LowIncomeHandler {
	return &LowIncomeHandler{engine: engine}
}

// GetLowIncome handles GET /api/lowincome
func (h *LowIncomeHandler) GetLowIncome(w http.ResponseWriter, r *http.Request) {
	tracts, err := h.engine.LowIncome(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tracts)
}

// GetLowIncomeGeoJSON handles GET /api/lowincome/geojson
func (h *LowIncomeHandler) GetLowIncomeGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc, err := h.engine.LowIncomeGeoJSON(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fc)
}
