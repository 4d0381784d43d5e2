// Package ingest runs the sequential batch pipeline: load raw sources,
// drop out-of-region features, normalize into canonical records, and
// persist the result as one atomic snapshot. Any source-level failure
// aborts the run before the backend is touched, so the previously served
// snapshot stays live.
package ingest

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/models"
	"github.com/you/transitmap/internal/normalize"
	"github.com/you/transitmap/internal/source"
	"github.com/you/transitmap/internal/store"
)

// Sources names the four raw input files. The station source may be GeoJSON
// or a delimited table (by extension); the other three are GeoJSON.
type Sources struct {
	Stations    string
	Routes      string
	Bottlenecks string
	LowIncome   string
}

// Result reports what one ingestion run produced.
type Result struct {
	SnapshotID string

	Stations    int
	Routes      int
	Bottlenecks int
	LowIncome   int

	// StationsSkipped counts records dropped for missing coordinates,
	// StationsOutOfRegion those whose region code did not match.
	StationsSkipped     int
	StationsOutOfRegion int
	RoutesOutOfRegion   int
	FeaturesOutOfRegion int
}

// Run executes one full ingestion against the given backend. The region
// code selects stations by attribute containment; bounds select line
// geometries by strict coordinate containment.
func Run(ctx context.Context, srcs Sources, region string, bounds geo.Bounds, backend store.Backend) (*Result, error) {
	region = strings.ToUpper(region)
	res := &Result{}

	stations, err := loadStations(srcs.Stations, region, res)
	if err != nil {
		return nil, err
	}

	routes, err := loadRoutes(srcs.Routes, bounds, res)
	if err != nil {
		return nil, err
	}

	bottlenecks, err := loadBottlenecks(srcs.Bottlenecks, bounds, res)
	if err != nil {
		return nil, err
	}

	lowIncome, err := loadLowIncome(srcs.LowIncome, bounds, res)
	if err != nil {
		return nil, err
	}

	snap := store.NewSnapshot()
	snap.Stations = stations
	snap.Routes = routes
	snap.Bottlenecks = bottlenecks
	snap.LowIncome = lowIncome

	if err := backend.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	res.SnapshotID = snap.ID
	res.Stations = len(stations)
	res.Routes = len(routes)
	res.Bottlenecks = len(bottlenecks)
	res.LowIncome = len(lowIncome)

	log.Printf("Ingested snapshot %s: %d stations (%d skipped, %d out of region), %d routes (%d out of region), %d bottlenecks, %d low-income tracts",
		res.SnapshotID, res.Stations, res.StationsSkipped, res.StationsOutOfRegion,
		res.Routes, res.RoutesOutOfRegion, res.Bottlenecks, res.LowIncome)

	return res, nil
}

// stationRequiredColumns is the mandatory column set for tabular station
// sources. A table missing any of these aborts the run.
var stationRequiredColumns = []string{"latitude", "longitude"}

func loadStations(path, region string, res *Result) ([]models.Station, error) {
	var (
		stations []models.Station
		skipped  int
	)

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		table, err := source.LoadTable(path, stationRequiredColumns)
		if err != nil {
			return nil, err
		}
		stations, skipped = normalize.StationRows(table)
	} else {
		fc, err := source.LoadFeatureCollection(path)
		if err != nil {
			return nil, err
		}
		stations, skipped = normalize.Stations(fc)
	}

	res.StationsSkipped = skipped
	if skipped > 0 {
		log.Printf("Skipped %d station records without coordinates", skipped)
	}

	// Attribute containment, applied after normalization so lower-cased
	// source codes still match.
	kept := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if !geo.MarkerInRegion(s.State, region) {
			res.StationsOutOfRegion++
			continue
		}
		kept = append(kept, s)
	}
	return kept, nil
}

func loadRoutes(path string, bounds geo.Bounds, res *Result) ([]models.Route, error) {
	fc, err := source.LoadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	filtered := &geo.FeatureCollection{Type: fc.Type}
	for _, f := range fc.Features {
		if !geo.FeatureWithin(bounds, f) {
			res.RoutesOutOfRegion++
			continue
		}
		filtered.Features = append(filtered.Features, f)
	}

	routes := normalize.Routes(filtered)
	if routes == nil {
		routes = []models.Route{}
	}
	return routes, nil
}

func loadBottlenecks(path string, bounds geo.Bounds, res *Result) ([]models.Bottleneck, error) {
	fc, err := source.LoadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	bottlenecks := normalize.Bottlenecks(filterLines(fc, bounds, res))
	if bottlenecks == nil {
		bottlenecks = []models.Bottleneck{}
	}
	return bottlenecks, nil
}

func loadLowIncome(path string, bounds geo.Bounds, res *Result) ([]models.LowIncomeTract, error) {
	fc, err := source.LoadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	tracts := normalize.LowIncomeTracts(filterLines(fc, bounds, res))
	if tracts == nil {
		tracts = []models.LowIncomeTract{}
	}
	return tracts, nil
}

// filterLines applies line containment to line-type geometries only.
// Features with other geometry kinds (tract polygons, point markers) are
// not subject to the line policy and pass through.
func filterLines(fc *geo.FeatureCollection, bounds geo.Bounds, res *Result) *geo.FeatureCollection {
	filtered := &geo.FeatureCollection{Type: fc.Type}
	for _, f := range fc.Features {
		if f.Geometry.IsLine() && !geo.FeatureWithin(bounds, f) {
			res.FeaturesOutOfRegion++
			continue
		}
		filtered.Features = append(filtered.Features, f)
	}
	return filtered
}
