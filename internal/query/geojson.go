package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/you/transitmap/internal/geo"
)

// RoutesGeoJSON returns the filtered route collection projected as a
// GeoJSON FeatureCollection.
func (e *Engine) RoutesGeoJSON(ctx context.Context, f RouteFilter) (*geo.FeatureCollection, error) {
	routes, err := e.Routes(ctx, f)
	if err != nil {
		return nil, err
	}

	fc := &geo.FeatureCollection{Type: "FeatureCollection", Features: []geo.Feature{}}
	for _, r := range routes {
		feature, err := featureFromRecord(r)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, feature)
	}
	return fc, nil
}

// BottlenecksGeoJSON returns the bottleneck collection as a GeoJSON
// FeatureCollection.
func (e *Engine) BottlenecksGeoJSON(ctx context.Context) (*geo.FeatureCollection, error) {
	bottlenecks, err := e.Bottlenecks(ctx)
	if err != nil {
		return nil, err
	}

	fc := &geo.FeatureCollection{Type: "FeatureCollection", Features: []geo.Feature{}}
	for _, b := range bottlenecks {
		feature, err := featureFromRecord(b)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, feature)
	}
	return fc, nil
}

// LowIncomeGeoJSON returns the low-income tract collection as a GeoJSON
// FeatureCollection.
func (e *Engine) LowIncomeGeoJSON(ctx context.Context) (*geo.FeatureCollection, error) {
	tracts, err := e.LowIncome(ctx)
	if err != nil {
		return nil, err
	}

	fc := &geo.FeatureCollection{Type: "FeatureCollection", Features: []geo.Feature{}}
	for _, t := range tracts {
		feature, err := featureFromRecord(t)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, feature)
	}
	return fc, nil
}

// featureFromRecord re-attaches a record's geometry under geometry and all
// remaining fields under properties.
func featureFromRecord(record interface{}) (geo.Feature, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return geo.Feature{}, fmt.Errorf("failed to encode record: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return geo.Feature{}, fmt.Errorf("failed to decode record fields: %w", err)
	}

	geometry := geo.Geometry{Coordinates: fields["coordinates"]}
	if raw, ok := fields["geometry_type"]; ok {
		if err := json.Unmarshal(raw, &geometry.Type); err != nil {
			return geo.Feature{}, fmt.Errorf("failed to decode geometry type: %w", err)
		}
	}
	delete(fields, "coordinates")
	delete(fields, "geometry_type")

	props := make(map[string]interface{}, len(fields))
	for k, raw := range fields {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return geo.Feature{}, fmt.Errorf("failed to decode property %s: %w", k, err)
		}
		props[k] = v
	}

	return geo.Feature{Type: "Feature", Properties: props, Geometry: geometry}, nil
}
