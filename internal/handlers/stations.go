package handlers

import (
	"context"
	"net/http"

	"github.com/you/transitmap/internal/models"
	"github.com/you/transitmap/internal/query"
)

// StationQuerier defines the interface for station queries
type StationQuerier interface {
	Stations(ctx context.Context, f query.StationFilter) ([]models.Station, error)
}

// StationHandler handles HTTP requests for station data
type StationHandler struct {
	engine StationQuerier
}

// NewStationHandler creates a new handler with the given query engine
func NewStationHandler(engine StationQuerier) *StationHandler {
	return &StationHandler{engine: engine}
}

// GetStations handles GET /api/stations
// Filters by state (region code) and mode if provided; both are optional.
func (h *StationHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := query.StationFilter{
		Region: q.Get("state"),
		Modes:  q["mode"],
	}

	stations, err := h.engine.Stations(r.Context(), f)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stations)
}
