// Package query answers filtered reads over the active snapshot. Every
// operation is a pure, synchronous read; there is no request-scoped
// mutable state.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/you/transitmap/internal/models"
	"github.com/you/transitmap/internal/store"
)

// SnapshotSource yields the snapshot queries run against. Implemented by
// *store.Store for in-memory serving and by every store.Backend for
// serving straight off the persisted snapshot.
type SnapshotSource interface {
	ActiveSnapshot(ctx context.Context) (*store.Snapshot, error)
}

// ValidationError indicates a caller-supplied filter that cannot be
// honored.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Engine applies caller-supplied filters to the active snapshot.
type Engine struct {
	src SnapshotSource
}

// NewEngine creates an engine reading from src.
func NewEngine(src SnapshotSource) *Engine {
	return &Engine{src: src}
}

// StationFilter restricts the station collection. Zero values mean no
// restriction on that dimension.
type StationFilter struct {
	// Region is compared case-insensitively against each station's state.
	Region string
	// Modes holds requested transport modes ("bus", "air", ...). At most
	// one mode may be supplied; multiple modes are rejected rather than
	// silently collapsed to the last one.
	Modes []string
}

// RouteFilter restricts the route collection.
type RouteFilter struct {
	// Region is accepted for interface symmetry; routes carry no region
	// attribute (the whole collection is region-filtered at ingestion),
	// so it never restricts the result.
	Region string
	// RouteType matches the GTFS route type code exactly.
	RouteType *int
	// Agency is a case-insensitive substring match against the route long
	// or short name.
	Agency string
}

// Stations returns stations matching the filter, preserving snapshot order.
func (e *Engine) Stations(ctx context.Context, f StationFilter) ([]models.Station, error) {
	if len(f.Modes) > 1 {
		return nil, &ValidationError{Msg: "at most one mode filter may be supplied"}
	}

	flagName := ""
	if len(f.Modes) == 1 {
		flagName = "mode_" + strings.ToLower(f.Modes[0])
		if !knownModeFlag(flagName) {
			return nil, &ValidationError{Msg: fmt.Sprintf("unknown mode %q", f.Modes[0])}
		}
	}

	snap, err := e.src.ActiveSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Stations == nil {
		return nil, fmt.Errorf("stations: %w", store.ErrNoSnapshot)
	}

	region := strings.ToUpper(f.Region)
	return snap.FindStations(func(s *models.Station) bool {
		if region != "" && s.State != region {
			return false
		}
		if flagName != "" {
			if v, _ := s.ModeFlag(flagName); v != 1 {
				return false
			}
		}
		return true
	}), nil
}

// Routes returns routes matching the filter, preserving snapshot order.
func (e *Engine) Routes(ctx context.Context, f RouteFilter) ([]models.Route, error) {
	snap, err := e.src.ActiveSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Routes == nil {
		return nil, fmt.Errorf("routes: %w", store.ErrNoSnapshot)
	}

	agency := strings.ToLower(f.Agency)
	return snap.FindRoutes(func(r *models.Route) bool {
		if f.RouteType != nil && (r.RouteType == nil || *r.RouteType != *f.RouteType) {
			return false
		}
		return agency == "" || nameContains(r, agency)
	}), nil
}

// Bottlenecks returns the bottleneck collection in snapshot order.
func (e *Engine) Bottlenecks(ctx context.Context) ([]models.Bottleneck, error) {
	snap, err := e.src.ActiveSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Bottlenecks == nil {
		return nil, fmt.Errorf("bottlenecks: %w", store.ErrNoSnapshot)
	}
	return snap.FindBottlenecks(nil), nil
}

// LowIncome returns the low-income tract collection in snapshot order.
func (e *Engine) LowIncome(ctx context.Context) ([]models.LowIncomeTract, error) {
	snap, err := e.src.ActiveSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.LowIncome == nil {
		return nil, fmt.Errorf("lowincome: %w", store.ErrNoSnapshot)
	}
	return snap.FindLowIncome(nil), nil
}

// CombinedResult bundles all four collections under one shared region
// filter. It is a convenience composition, not a join.
type CombinedResult struct {
	Stations    []models.Station        `json:"stations"`
	Routes      []models.Route          `json:"routes"`
	Bottlenecks []models.Bottleneck     `json:"bottlenecks"`
	LowIncome   []models.LowIncomeTract `json:"lowincome"`
}

// Combined runs all four collections under one shared region code. Kinds
// without a region attribute are returned unrestricted.
func (e *Engine) Combined(ctx context.Context, region string) (*CombinedResult, error) {
	stations, err := e.Stations(ctx, StationFilter{Region: region})
	if err != nil {
		return nil, err
	}
	routes, err := e.Routes(ctx, RouteFilter{Region: region})
	if err != nil {
		return nil, err
	}
	bottlenecks, err := e.Bottlenecks(ctx)
	if err != nil {
		return nil, err
	}
	lowIncome, err := e.LowIncome(ctx)
	if err != nil {
		return nil, err
	}

	return &CombinedResult{
		Stations:    stations,
		Routes:      routes,
		Bottlenecks: bottlenecks,
		LowIncome:   lowIncome,
	}, nil
}

func nameContains(r *models.Route, needle string) bool {
	if r.RouteLongName != nil && strings.Contains(strings.ToLower(*r.RouteLongName), needle) {
		return true
	}
	return r.RouteShortName != nil && strings.Contains(strings.ToLower(*r.RouteShortName), needle)
}

func knownModeFlag(name string) bool {
	for _, n := range models.ModeFlagNames {
		if n == name {
			return true
		}
	}
	return false
}
