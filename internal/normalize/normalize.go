// Package normalize maps heterogeneous source properties into the four
// canonical record schemas. Extraction is case-insensitive and alias-aware,
// so the same code handles raw NTAD/Caltrans property names and
// already-canonical records; normalizing canonical input is a no-op.
package normalize

import (
	"strings"

	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/models"
	"github.com/you/transitmap/internal/source"
)

// Stations normalizes a station feature collection. Features without a
// usable longitude/latitude pair are skipped, not fatal; the skip count is
// returned alongside the records.
func Stations(fc *geo.FeatureCollection) ([]models.Station, int) {
	var stations []models.Station
	skipped := 0

	for _, f := range fc.Features {
		p := newPropReader(f.Properties)

		lng, lat, err := f.Geometry.Point()
		if err != nil {
			// No point geometry; fall back to coordinate properties.
			plng := p.float("longitude", "lng", "lon")
			plat := p.float("latitude", "lat")
			if plng == nil || plat == nil {
				skipped++
				continue
			}
			lng, lat = *plng, *plat
		}

		stations = append(stations, buildStation(p, lng, lat))
	}

	return stations, skipped
}

// StationRows normalizes a tabular station source. Rows missing longitude
// or latitude are skipped and counted.
func StationRows(t *source.Table) ([]models.Station, int) {
	var stations []models.Station
	skipped := 0

	for _, row := range t.Rows {
		p := newPropReader(rowProps(row))

		lng := p.float("longitude", "lng", "lon")
		lat := p.float("latitude", "lat")
		if lng == nil || lat == nil {
			skipped++
			continue
		}

		stations = append(stations, buildStation(p, *lng, *lat))
	}

	return stations, skipped
}

func buildStation(p propReader, lng, lat float64) models.Station {
	s := models.Station{
		FacName:   p.str("fac_name", "name", "facility_name"),
		Address:   p.str("address"),
		City:      p.str("city"),
		Zipcode:   p.str("zipcode", "zip", "zip_code"),
		Longitude: lng,
		Latitude:  lat,
		ModeType:  p.str("mode_type", "fac_type"),
		ModeBus:   p.flag("mode_bus"),
		ModeAir:   p.flag("mode_air"),
		ModeRail:  p.flag("mode_rail"),
		ModeFerry: p.flag("mode_ferry"),
		ModeBike:  p.flag("mode_bike"),
		Website:   p.str("website"),
		Notes:     p.str("notes"),
	}
	if id := p.str("station_id", "fac_id", "id"); id != nil {
		s.StationID = *id
	}
	// Region codes compare case-insensitively downstream; store upper-cased.
	if state := p.str("state"); state != nil {
		s.State = strings.ToUpper(*state)
	}
	return s
}

// Routes normalizes a transit-route feature collection. Geometry is carried
// through untouched under coordinates/geometry_type.
func Routes(fc *geo.FeatureCollection) []models.Route {
	var routes []models.Route
	for _, f := range fc.Features {
		p := newPropReader(f.Properties)
		routes = append(routes, models.Route{
			RouteID:        p.str("route_id"),
			RouteShortName: p.str("route_short_name"),
			RouteLongName:  p.str("route_long_name"),
			RouteType:      p.int("route_type"),
			Coordinates:    f.Geometry.Coordinates,
			GeometryType:   f.Geometry.Type,
		})
	}
	return routes
}

// Bottlenecks normalizes a congestion-bottleneck feature collection.
func Bottlenecks(fc *geo.FeatureCollection) []models.Bottleneck {
	var bottlenecks []models.Bottleneck
	for _, f := range fc.Features {
		p := newPropReader(f.Properties)
		bottlenecks = append(bottlenecks, models.Bottleneck{
			Name:         p.str("name"),
			Rank:         p.int("rank"),
			County:       p.str("county"),
			Direction:    p.str("direction"),
			DelayHours:   p.float("delay_hours", "total_delay__veh_hrs_"),
			ExtentMiles:  p.float("extent_miles", "avg_extent__miles_"),
			ShapeLength:  p.float("shape_length"),
			Coordinates:  f.Geometry.Coordinates,
			GeometryType: f.Geometry.Type,
		})
	}
	return bottlenecks
}

// LowIncomeTracts normalizes a low-income census-tract feature collection.
func LowIncomeTracts(fc *geo.FeatureCollection) []models.LowIncomeTract {
	var tracts []models.LowIncomeTract
	for _, f := range fc.Features {
		p := newPropReader(f.Properties)
		tracts = append(tracts, models.LowIncomeTract{
			Geoid:        p.str("geoid"),
			Tract:        p.str("tract", "namelsad"),
			County:       p.str("county"),
			Zip:          p.str("zip"),
			Population:   p.int("population"),
			PovertyPct:   p.float("poverty_pct", "poverty"),
			CIScore:      p.float("ci_score", "ciscore"),
			DACStatus:    p.str("dac_status", "dac_and_or_lic"),
			IncomeGroup:  p.str("income_group"),
			Coordinates:  f.Geometry.Coordinates,
			GeometryType: f.Geometry.Type,
		})
	}
	return tracts
}
