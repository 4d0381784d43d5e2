package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/source"
	"github.com/you/transitmap/internal/store"
)

const stationsGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature",
		 "properties": {"station_id": "S1", "fac_name": "Union Station", "state": "ca", "mode_bus": 1, "mode_rail": 1},
		 "geometry": {"type": "Point", "coordinates": [-118.2437, 34.0522]}},
		{"type": "Feature",
		 "properties": {"station_id": "S2", "state": "NV", "mode_bus": 1},
		 "geometry": {"type": "Point", "coordinates": [-115.1398, 36.1699]}},
		{"type": "Feature",
		 "properties": {"station_id": "S3", "state": "CA"},
		 "geometry": null},
		{"type": "Feature",
		 "properties": {"station_id": "S4", "state": "CA", "mode_bus": 1},
		 "geometry": {"type": "Point", "coordinates": [-123.0, 45.5]}}
	]
}`

const routesGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature",
		 "properties": {"route_id": "720", "route_long_name": "Metro J Line", "route_type": 3},
		 "geometry": {"type": "LineString", "coordinates": [[-118.24, 34.05], [-118.20, 34.10]]}},
		{"type": "Feature",
		 "properties": {"route_id": "X1", "route_long_name": "Interstate Express", "route_type": 3},
		 "geometry": {"type": "LineString", "coordinates": [[-118.24, 34.05], [-90.0, 34.0]]}}
	]
}`

const bottlenecksGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature",
		 "properties": {"Name": "US-101 NB", "Rank": 1, "Total_Delay__Veh_Hrs_": 1520.5},
		 "geometry": {"type": "LineString", "coordinates": [[-118.29, 34.06], [-118.28, 34.07]]}},
		{"type": "Feature",
		 "properties": {"Name": "I-80 EB", "Rank": 2},
		 "geometry": {"type": "LineString", "coordinates": [[-124.6, 40.0], [-124.4, 40.1]]}}
	]
}`

const lowIncomeGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature",
		 "properties": {"GEOID": "06037206031", "Poverty": 42.3, "CIscore": 87.1},
		 "geometry": {"type": "Polygon", "coordinates": [[[-118.3, 34.0], [-118.2, 34.0], [-118.2, 34.1], [-118.3, 34.0]]]}}
	]
}`

func writeSources(t *testing.T) Sources {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return path
	}

	return Sources{
		Stations:    write("stations.geojson", stationsGeoJSON),
		Routes:      write("transit_routes.geojson", routesGeoJSON),
		Bottlenecks: write("bottlenecks.geojson", bottlenecksGeoJSON),
		LowIncome:   write("low_income.geojson", lowIncomeGeoJSON),
	}
}

func TestRunFullPipeline(t *testing.T) {
	srcs := writeSources(t)
	backend, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	res, err := Run(context.Background(), srcs, "CA", geo.CaliforniaBounds, backend)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// S1 kept, S2 dropped by region code, S3 dropped for missing
	// coordinates. S4 declares CA but sits in Oregon: attribute containment
	// never inspects coordinates, so it is kept too.
	if res.Stations != 2 {
		t.Errorf("stations = %d, want 2", res.Stations)
	}
	if res.StationsSkipped != 1 {
		t.Errorf("stations skipped = %d, want 1", res.StationsSkipped)
	}
	if res.StationsOutOfRegion != 1 {
		t.Errorf("stations out of region = %d, want 1", res.StationsOutOfRegion)
	}
	// The route crossing out of bounds is excluded whole.
	if res.Routes != 1 || res.RoutesOutOfRegion != 1 {
		t.Errorf("routes = %d (out %d), want 1 (out 1)", res.Routes, res.RoutesOutOfRegion)
	}
	// The second bottleneck's line leaves the bounding region.
	if res.Bottlenecks != 1 || res.FeaturesOutOfRegion != 1 {
		t.Errorf("bottlenecks = %d (out %d), want 1 (out 1)", res.Bottlenecks, res.FeaturesOutOfRegion)
	}
	if res.LowIncome != 1 {
		t.Errorf("lowincome = %d, want 1", res.LowIncome)
	}

	snap, err := backend.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap.ID != res.SnapshotID {
		t.Errorf("persisted snapshot ID = %q, want %q", snap.ID, res.SnapshotID)
	}
	s := snap.Stations[0]
	if s.StationID != "S1" || s.State != "CA" || s.ModeBus != 1 || s.ModeRail != 1 {
		t.Errorf("unexpected persisted station: %+v", s)
	}
	if snap.Routes[0].RouteID == nil || *snap.Routes[0].RouteID != "720" {
		t.Errorf("unexpected persisted route: %+v", snap.Routes[0])
	}
	// Tract polygons are not subject to the line containment policy.
	if snap.LowIncome[0].GeometryType != "Polygon" {
		t.Errorf("tract geometry = %q, want Polygon", snap.LowIncome[0].GeometryType)
	}
}

func TestRunStationCSVSource(t *testing.T) {
	srcs := writeSources(t)
	csvPath := filepath.Join(t.TempDir(), "stations.csv")
	csv := "station_id,fac_name,state,latitude,longitude,mode_bus\n" +
		"S1,Union Station,ca,34.0522,-118.2437,1\n" +
		"S2,Desert Stop,NV,36.1699,-115.1398,1\n" +
		"S3,No Position,CA,,,0\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	srcs.Stations = csvPath

	backend, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	res, err := Run(context.Background(), srcs, "CA", geo.CaliforniaBounds, backend)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stations != 1 || res.StationsSkipped != 1 || res.StationsOutOfRegion != 1 {
		t.Errorf("stations = %d (skipped %d, out %d), want 1 (1, 1)", res.Stations, res.StationsSkipped, res.StationsOutOfRegion)
	}
}

func TestRunMissingSourceAborts(t *testing.T) {
	srcs := writeSources(t)
	srcs.Routes = filepath.Join(t.TempDir(), "missing.geojson")

	dataDir := t.TempDir()
	backend, err := store.NewFileBackend(dataDir)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	if _, err := Run(context.Background(), srcs, "CA", geo.CaliforniaBounds, backend); !errors.Is(err, source.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}

	// The backend was never touched: no partial snapshot exists.
	if _, err := backend.LoadSnapshot(context.Background()); !errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot after aborted run, got %v", err)
	}
}

func TestRunBadSchemaPreservesPreviousSnapshot(t *testing.T) {
	srcs := writeSources(t)
	backend, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	first, err := Run(context.Background(), srcs, "CA", geo.CaliforniaBounds, backend)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Second run with a tabular source missing mandatory columns.
	badCSV := filepath.Join(t.TempDir(), "stations.csv")
	if err := os.WriteFile(badCSV, []byte("station_id,name\nS1,Union Station\n"), 0644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	srcs.Stations = badCSV

	_, err = Run(context.Background(), srcs, "CA", geo.CaliforniaBounds, backend)
	var se *source.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}

	// The previously published snapshot is still served.
	snap, err := backend.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap.ID != first.SnapshotID {
		t.Errorf("active snapshot = %q, want the previous %q", snap.ID, first.SnapshotID)
	}
}
