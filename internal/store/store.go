// Package store holds the normalized collections produced by an ingestion
// run and the backends that persist them. The unit of change is a whole
// Snapshot: collections are immutable between ingestion runs and replaced
// wholesale, never mutated in place.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/transitmap/internal/models"
)

// ErrNoSnapshot indicates that no snapshot (or a requested collection's
// backing snapshot) exists yet.
var ErrNoSnapshot = errors.New("no snapshot available")

// DecodeError indicates a persisted snapshot that is structurally corrupt.
type DecodeError struct {
	Kind string
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s snapshot (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Snapshot is the output of one full ingestion run: all four normalized
// collections plus identity metadata. A nil collection means the backing
// data for that kind does not exist; an empty non-nil collection means it
// exists and holds no records.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Stations    []models.Station        `json:"-"`
	Routes      []models.Route          `json:"-"`
	Bottlenecks []models.Bottleneck     `json:"-"`
	LowIncome   []models.LowIncomeTract `json:"-"`
}

// NewSnapshot creates an empty snapshot with a fresh identifier.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

// FindStations returns the stations matching pred in insertion order. A nil
// predicate returns the collection unchanged, so present-but-empty stays
// distinguishable from absent.
func (snap *Snapshot) FindStations(pred func(*models.Station) bool) []models.Station {
	if pred == nil {
		return snap.Stations
	}
	out := make([]models.Station, 0, len(snap.Stations))
	for i := range snap.Stations {
		if pred(&snap.Stations[i]) {
			out = append(out, snap.Stations[i])
		}
	}
	return out
}

// FindRoutes returns the routes matching pred in insertion order.
func (snap *Snapshot) FindRoutes(pred func(*models.Route) bool) []models.Route {
	if pred == nil {
		return snap.Routes
	}
	out := make([]models.Route, 0, len(snap.Routes))
	for i := range snap.Routes {
		if pred(&snap.Routes[i]) {
			out = append(out, snap.Routes[i])
		}
	}
	return out
}

// FindBottlenecks returns the bottlenecks matching pred in insertion order.
func (snap *Snapshot) FindBottlenecks(pred func(*models.Bottleneck) bool) []models.Bottleneck {
	if pred == nil {
		return snap.Bottlenecks
	}
	out := make([]models.Bottleneck, 0, len(snap.Bottlenecks))
	for i := range snap.Bottlenecks {
		if pred(&snap.Bottlenecks[i]) {
			out = append(out, snap.Bottlenecks[i])
		}
	}
	return out
}

// FindLowIncome returns the low-income tracts matching pred in insertion
// order.
func (snap *Snapshot) FindLowIncome(pred func(*models.LowIncomeTract) bool) []models.LowIncomeTract {
	if pred == nil {
		return snap.LowIncome
	}
	out := make([]models.LowIncomeTract, 0, len(snap.LowIncome))
	for i := range snap.LowIncome {
		if pred(&snap.LowIncome[i]) {
			out = append(out, snap.LowIncome[i])
		}
	}
	return out
}

// Backend persists snapshots. Implementations must publish a saved snapshot
// atomically: a concurrent load sees either the previous snapshot or the
// new one in full, never a partially written state.
type Backend interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Store is the in-memory holder of the active snapshot. It is an explicitly
// constructed instance owned by the service, not module-level state. The
// only mutating operation is ReplaceAll, an atomic pointer swap: concurrent
// readers observe either the fully-old or the fully-new snapshot.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// ReplaceAll atomically swaps the active snapshot for a new one.
func (s *Store) ReplaceAll(snap *Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// ActiveSnapshot returns the current snapshot, or ErrNoSnapshot before the
// first ReplaceAll.
func (s *Store) ActiveSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// FindStations returns stations matching pred in insertion order. A nil
// predicate matches everything.
func (s *Store) FindStations(pred func(*models.Station) bool) ([]models.Station, error) {
	snap, err := s.ActiveSnapshot(context.Background())
	if err != nil {
		return nil, err
	}
	return snap.FindStations(pred), nil
}

// FindRoutes returns routes matching pred in insertion order.
func (s *Store) FindRoutes(pred func(*models.Route) bool) ([]models.Route, error) {
	snap, err := s.ActiveSnapshot(context.Background())
	if err != nil {
		return nil, err
	}
	return snap.FindRoutes(pred), nil
}

// FindBottlenecks returns bottlenecks matching pred in insertion order.
func (s *Store) FindBottlenecks(pred func(*models.Bottleneck) bool) ([]models.Bottleneck, error) {
	snap, err := s.ActiveSnapshot(context.Background())
	if err != nil {
		return nil, err
	}
	return snap.FindBottlenecks(pred), nil
}

// FindLowIncome returns low-income tracts matching pred in insertion order.
func (s *Store) FindLowIncome(pred func(*models.LowIncomeTract) bool) ([]models.LowIncomeTract, error) {
	snap, err := s.ActiveSnapshot(context.Background())
	if err != nil {
		return nil, err
	}
	return snap.FindLowIncome(pred), nil
}
