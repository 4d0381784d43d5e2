package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/models"
	"github.com/you/transitmap/internal/query"
)

// RouteQuerier defines the interface for route queries
type RouteQuerier interface {
	Routes(ctx context.Context, f query.RouteFilter) ([]models.Route, error)
	RoutesGeoJSON(ctx context.Context, f query.RouteFilter) (*geo.FeatureCollection, error)
}

// RouteHandler handles HTTP requests for route data
type RouteHandler struct {
	engine RouteQuerier
}

// NewRouteHandler creates a new handler with the given query engine
func NewRouteHandler(engine RouteQuerier) *RouteHandler {
	return &RouteHandler{engine: engine}
}

// GetRoutes handles GET /api/routes
// Filters by route_type, state and agency if provided; all are optional.
func (h *RouteHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	f, ok := parseRouteFilter(w, r)
	if !ok {
		return
	}

	routes, err := h.engine.Routes(r.Context(), f)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, routes)
}

// GetRoutesGeoJSON handles GET /api/routes/geojson
// Same filters as GetRoutes, projected as a GeoJSON FeatureCollection.
func (h *RouteHandler) GetRoutesGeoJSON(w http.ResponseWriter, r *http.Request) {
	f, ok := parseRouteFilter(w, r)
	if !ok {
		return
	}

	fc, err := h.engine.RoutesGeoJSON(r.Context(), f)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fc)
}

func parseRouteFilter(w http.ResponseWriter, r *http.Request) (query.RouteFilter, bool) {
	q := r.URL.Query()

	f := query.RouteFilter{
		Region: q.Get("state"),
		Agency: q.Get("agency"),
	}

	if v := q.Get("route_type"); v != "" {
		rt, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "route_type must be an integer",
				Details: map[string]interface{}{
					"route_type": v,
				},
			})
			return query.RouteFilter{}, false
		}
		f.RouteType = &rt
	}

	return f, true
}
