package models

import "encoding/json"

// Bottleneck represents one highway congestion bottleneck segment.
// JSON field names match the bottlenecks.json contract consumed by the map
// frontend.
type Bottleneck struct {
	Name      *string `json:"name"`
	Rank      *int    `json:"rank"`
	County    *string `json:"county"`
	Direction *string `json:"direction"`

	// DelayHours is total delay in vehicle-hours, ExtentMiles the average
	// congested extent.
	DelayHours  *float64 `json:"delay_hours"`
	ExtentMiles *float64 `json:"extent_miles"`
	ShapeLength *float64 `json:"shape_length"`

	Coordinates  json.RawMessage `json:"coordinates"`
	GeometryType string          `json:"geometry_type"`
}
