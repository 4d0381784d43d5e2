package models

import (
	"errors"
	"fmt"
)

// Station represents one intermodal passenger facility.
// JSON field names match the data.json contract consumed by the map frontend.
type Station struct {
	StationID string  `json:"station_id"`
	FacName   *string `json:"fac_name"`
	Address   *string `json:"address"`
	City      *string `json:"city"`

	// State is the authoritative region code, always upper-cased at
	// normalization time.
	State   string  `json:"state"`
	Zipcode *string `json:"zipcode"`

	// Position is mandatory: stations without coordinates are dropped
	// during normalization.
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	ModeType *string `json:"mode_type"`

	// Transport-mode flags, always present and always 0 or 1.
	ModeBus   int `json:"mode_bus"`
	ModeAir   int `json:"mode_air"`
	ModeRail  int `json:"mode_rail"`
	ModeFerry int `json:"mode_ferry"`
	ModeBike  int `json:"mode_bike"`

	Website *string `json:"website"`
	Notes   *string `json:"notes"`
}

// ModeFlagNames lists the supported category-flag names in canonical order.
var ModeFlagNames = []string{"mode_bus", "mode_air", "mode_rail", "mode_ferry", "mode_bike"}

// ModeFlag returns the value of the named mode flag, or false if the name
// is not a known flag.
func (s *Station) ModeFlag(name string) (int, bool) {
	switch name {
	case "mode_bus":
		return s.ModeBus, true
	case "mode_air":
		return s.ModeAir, true
	case "mode_rail":
		return s.ModeRail, true
	case "mode_ferry":
		return s.ModeFerry, true
	case "mode_bike":
		return s.ModeBike, true
	}
	return 0, false
}

// Validate checks the Station invariants after normalization.
func (s *Station) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return errors.New("latitude out of range: must be between -90 and 90")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return errors.New("longitude out of range: must be between -180 and 180")
	}
	for _, name := range ModeFlagNames {
		v, _ := s.ModeFlag(name)
		if v != 0 && v != 1 {
			return fmt.Errorf("%s must be 0 or 1, got %d", name, v)
		}
	}
	return nil
}
