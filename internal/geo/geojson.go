package geo

import (
	"encoding/json"
	"fmt"
)

// FeatureCollection is a standard GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature with its geometry and properties.
type Feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   Geometry               `json:"geometry"`
}

// Geometry holds a GeoJSON geometry. Coordinates are kept as raw JSON so
// Point, LineString and MultiLineString shapes can share one type and
// round-trip without loss.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point decodes the geometry as a [longitude, latitude] pair.
func (g Geometry) Point() (lng, lat float64, err error) {
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return 0, 0, fmt.Errorf("failed to decode point coordinates: %w", err)
	}
	if len(coords) < 2 {
		return 0, 0, fmt.Errorf("point has %d coordinates, need at least 2", len(coords))
	}
	return coords[0], coords[1], nil
}

// Paths decodes the geometry as a list of coordinate paths.
// A LineString yields a single path, a MultiLineString one path per segment.
func (g Geometry) Paths() ([][][2]float64, error) {
	switch g.Type {
	case "LineString":
		var path [][2]float64
		if err := json.Unmarshal(g.Coordinates, &path); err != nil {
			return nil, fmt.Errorf("failed to decode LineString coordinates: %w", err)
		}
		return [][][2]float64{path}, nil
	case "MultiLineString":
		var paths [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &paths); err != nil {
			return nil, fmt.Errorf("failed to decode MultiLineString coordinates: %w", err)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type: %q", g.Type)
	}
}

// IsLine reports whether the geometry is one of the supported line kinds.
func (g Geometry) IsLine() bool {
	return g.Type == "LineString" || g.Type == "MultiLineString"
}
