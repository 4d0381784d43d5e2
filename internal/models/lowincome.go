package models

import "encoding/json"

// LowIncomeTract represents one low-income census tract.
// JSON field names match the low_income.json contract consumed by the map
// frontend.
type LowIncomeTract struct {
	Geoid      *string `json:"geoid"`
	Tract      *string `json:"tract"`
	County     *string `json:"county"`
	Zip        *string `json:"zip"`
	Population *int    `json:"population"`

	// PovertyPct is the tract poverty percentage, CIScore the composite
	// CalEnviroScreen-style index score.
	PovertyPct *float64 `json:"poverty_pct"`
	CIScore    *float64 `json:"ci_score"`

	// DACStatus marks disadvantaged-community and/or low-income status.
	DACStatus   *string `json:"dac_status"`
	IncomeGroup *string `json:"income_group"`

	Coordinates  json.RawMessage `json:"coordinates"`
	GeometryType string          `json:"geometry_type"`
}
