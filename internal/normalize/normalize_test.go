package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/source"
)

func TestStationRowCoercion(t *testing.T) {
	table := &source.Table{
		Columns: []string{"station_id", "fac_name", "state", "latitude", "longitude", "mode_bus"},
		Rows: []map[string]string{{
			"station_id": "100001",
			"fac_name":   "Union Station",
			"state":      "ca",
			"latitude":   "34.0522",
			"longitude":  "-118.2437",
			"mode_bus":   "1",
		}},
	}

	stations, skipped := StationRows(table)
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(stations) != 1 {
		t.Fatalf("expected 1 station, got %d", len(stations))
	}

	s := stations[0]
	if s.StationID != "100001" {
		t.Errorf("station_id = %q, want 100001", s.StationID)
	}
	// Region codes are upper-cased so downstream comparison is exact.
	if s.State != "CA" {
		t.Errorf("state = %q, want CA", s.State)
	}
	if s.Latitude != 34.0522 || s.Longitude != -118.2437 {
		t.Errorf("coordinates = (%v, %v), want (34.0522, -118.2437)", s.Latitude, s.Longitude)
	}
	if s.ModeBus != 1 {
		t.Errorf("mode_bus = %d, want 1", s.ModeBus)
	}
	// Absent flags coerce to 0, never null.
	for _, name := range []string{"mode_air", "mode_rail", "mode_ferry", "mode_bike"} {
		if v, _ := s.ModeFlag(name); v != 0 {
			t.Errorf("%s = %d, want 0", name, v)
		}
	}
	if err := s.Validate(); err != nil {
		t.Errorf("normalized station failed validation: %v", err)
	}
}

func TestStationRowsSkipMissingCoordinates(t *testing.T) {
	table := &source.Table{
		Columns: []string{"station_id", "latitude", "longitude"},
		Rows: []map[string]string{
			{"station_id": "S1", "latitude": "34.05", "longitude": "-118.24"},
			{"station_id": "S2", "latitude": "", "longitude": "-118.24"},
			{"station_id": "S3", "latitude": "not-a-number", "longitude": "-118.24"},
		},
	}

	stations, skipped := StationRows(table)
	if len(stations) != 1 {
		t.Errorf("expected 1 station, got %d", len(stations))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestStationsPreferPointGeometry(t *testing.T) {
	fc := &geo.FeatureCollection{Features: []geo.Feature{{
		Properties: map[string]interface{}{
			"fac_name":   "Ferry Building",
			"state":      "CA",
			"longitude":  -100.0, // stale property, geometry wins
			"latitude":   40.0,
			"mode_ferry": 1.0,
		},
		Geometry: geo.Geometry{Type: "Point", Coordinates: json.RawMessage(`[-122.3937, 37.7955]`)},
	}}}

	stations, skipped := Stations(fc)
	if skipped != 0 || len(stations) != 1 {
		t.Fatalf("expected 1 station with 0 skipped, got %d/%d", len(stations), skipped)
	}
	if stations[0].Longitude != -122.3937 || stations[0].Latitude != 37.7955 {
		t.Errorf("coordinates = (%v, %v), want geometry values", stations[0].Longitude, stations[0].Latitude)
	}
	if stations[0].ModeFerry != 1 {
		t.Errorf("mode_ferry = %d, want 1", stations[0].ModeFerry)
	}
}

func TestStationsPropertyFallbackAndSkip(t *testing.T) {
	fc := &geo.FeatureCollection{Features: []geo.Feature{
		{
			// No geometry; lng/lat aliases carry the position.
			Properties: map[string]interface{}{"lng": -118.24, "lat": 34.05, "state": "CA"},
		},
		{
			// No geometry and no coordinate properties: skipped, not fatal.
			Properties: map[string]interface{}{"fac_name": "Unknown"},
		},
	}}

	stations, skipped := Stations(fc)
	if len(stations) != 1 {
		t.Errorf("expected 1 station, got %d", len(stations))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestFlagCoercion(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  int
	}{
		{"numeric one", 1.0, 1},
		{"numeric zero", 0.0, 0},
		{"string one", "1", 1},
		{"string zero", "0", 0},
		{"truthy numeric", 2.0, 1},
		{"null", nil, 0},
		{"garbage", "yes", 0},
	}

	for _, tc := range cases {
		p := newPropReader(map[string]interface{}{"mode_bus": tc.value})
		if got := p.flag("mode_bus"); got != tc.want {
			t.Errorf("%s: flag = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestNumericIdentifiersSurvive(t *testing.T) {
	// GeoJSON numbers arrive as float64; identifier fields must come back
	// as their original digit strings, not 1.00001e+05.
	p := newPropReader(map[string]interface{}{"station_id": 100001.0})
	id := p.str("station_id")
	if id == nil || *id != "100001" {
		t.Errorf("station_id = %v, want 100001", id)
	}
}

// Normalizing an already-canonical record is a no-op: feeding a normalized
// station's own JSON back through produces the identical record.
func TestNormalizeCanonicalIsIdempotent(t *testing.T) {
	table := &source.Table{
		Columns: []string{"station_id", "fac_name", "state", "latitude", "longitude", "mode_bus", "mode_rail"},
		Rows: []map[string]string{{
			"station_id": "S1",
			"fac_name":   "Union Station",
			"state":      "ca",
			"latitude":   "34.0522",
			"longitude":  "-118.2437",
			"mode_bus":   "1",
			"mode_rail":  "1",
		}},
	}
	first, _ := StationRows(table)

	data, err := json.Marshal(first[0])
	if err != nil {
		t.Fatalf("failed to encode station: %v", err)
	}
	var props map[string]interface{}
	if err := json.Unmarshal(data, &props); err != nil {
		t.Fatalf("failed to decode station fields: %v", err)
	}

	second, skipped := Stations(&geo.FeatureCollection{Features: []geo.Feature{{Properties: props}}})
	if skipped != 0 || len(second) != 1 {
		t.Fatalf("expected 1 station with 0 skipped, got %d/%d", len(second), skipped)
	}
	if !reflect.DeepEqual(first[0], second[0]) {
		t.Errorf("second normalization changed the record:\nfirst:  %+v\nsecond: %+v", first[0], second[0])
	}
}

func TestRoutesCarryGeometry(t *testing.T) {
	coords := json.RawMessage(`[[-118.24, 34.05], [-118.20, 34.10]]`)
	fc := &geo.FeatureCollection{Features: []geo.Feature{{
		Properties: map[string]interface{}{
			"route_id":        720.0,
			"route_long_name": "Metro J Line",
			"route_type":      3.0,
		},
		Geometry: geo.Geometry{Type: "LineString", Coordinates: coords},
	}}}

	routes := Routes(fc)
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	r := routes[0]
	if r.RouteID == nil || *r.RouteID != "720" {
		t.Errorf("route_id = %v, want 720", r.RouteID)
	}
	if r.RouteType == nil || *r.RouteType != 3 {
		t.Errorf("route_type = %v, want 3", r.RouteType)
	}
	if r.GeometryType != "LineString" {
		t.Errorf("geometry_type = %q, want LineString", r.GeometryType)
	}
	if string(r.Coordinates) != string(coords) {
		t.Errorf("coordinates were not carried through untouched")
	}
}

func TestBottleneckSourceAliases(t *testing.T) {
	fc := &geo.FeatureCollection{Features: []geo.Feature{{
		Properties: map[string]interface{}{
			"Name":                  "US-101 NB at Vermont",
			"Rank":                  3.0,
			"Total_Delay__Veh_Hrs_": 1520.5,
			"Avg_Extent__Miles_":    2.4,
		},
		Geometry: geo.Geometry{Type: "LineString", Coordinates: json.RawMessage(`[[-118.29, 34.06]]`)},
	}}}

	bottlenecks := Bottlenecks(fc)
	if len(bottlenecks) != 1 {
		t.Fatalf("expected 1 bottleneck, got %d", len(bottlenecks))
	}
	b := bottlenecks[0]
	if b.Rank == nil || *b.Rank != 3 {
		t.Errorf("rank = %v, want 3", b.Rank)
	}
	if b.DelayHours == nil || *b.DelayHours != 1520.5 {
		t.Errorf("delay_hours = %v, want 1520.5", b.DelayHours)
	}
	if b.ExtentMiles == nil || *b.ExtentMiles != 2.4 {
		t.Errorf("extent_miles = %v, want 2.4", b.ExtentMiles)
	}
}

func TestLowIncomeSourceAliases(t *testing.T) {
	fc := &geo.FeatureCollection{Features: []geo.Feature{{
		Properties: map[string]interface{}{
			"GEOID":          "06037206031",
			"NAMELSAD":       "Census Tract 2060.31",
			"Poverty":        42.3,
			"CIscore":        87.1,
			"DAC_and_or_LIC": "DAC",
		},
		Geometry: geo.Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[[-118.3, 34.0]]]`)},
	}}}

	tracts := LowIncomeTracts(fc)
	if len(tracts) != 1 {
		t.Fatalf("expected 1 tract, got %d", len(tracts))
	}
	tr := tracts[0]
	if tr.Geoid == nil || *tr.Geoid != "06037206031" {
		t.Errorf("geoid = %v, want 06037206031", tr.Geoid)
	}
	if tr.Tract == nil || *tr.Tract != "Census Tract 2060.31" {
		t.Errorf("tract = %v, want NAMELSAD alias value", tr.Tract)
	}
	if tr.PovertyPct == nil || *tr.PovertyPct != 42.3 {
		t.Errorf("poverty_pct = %v, want 42.3", tr.PovertyPct)
	}
	if tr.CIScore == nil || *tr.CIScore != 87.1 {
		t.Errorf("ci_score = %v, want 87.1", tr.CIScore)
	}
	if tr.DACStatus == nil || *tr.DACStatus != "DAC" {
		t.Errorf("dac_status = %v, want DAC", tr.DACStatus)
	}
	if tr.GeometryType != "Polygon" {
		t.Errorf("geometry_type = %q, want Polygon", tr.GeometryType)
	}
}
