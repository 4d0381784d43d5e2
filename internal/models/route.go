package models

import "encoding/json"

// Route represents one transit route with its line geometry.
// JSON field names match the routes.json contract consumed by the map frontend.
type Route struct {
	RouteID        *string `json:"route_id"`
	RouteShortName *string `json:"route_short_name"`
	RouteLongName  *string `json:"route_long_name"`

	// RouteType is the GTFS route type code (0 tram, 1 metro, 2 rail,
	// 3 bus, 4 ferry, ...).
	RouteType *int `json:"route_type"`

	// Coordinates hold the raw geometry coordinate array: a single path
	// for LineString, multiple disjoint paths for MultiLineString.
	Coordinates  json.RawMessage `json:"coordinates"`
	GeometryType string          `json:"geometry_type"`
}
