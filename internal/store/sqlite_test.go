package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/you/transitmap/internal/models"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSQLiteBackendEmptyDatabase(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	if _, err := backend.LoadSnapshot(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	backend := newTestSQLiteBackend(t)

	saved := sampleSnapshot()
	if err := backend.SaveSnapshot(context.Background(), saved); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := backend.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.ID != saved.ID {
		t.Errorf("snapshot ID = %q, want %q", loaded.ID, saved.ID)
	}
	if len(loaded.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(loaded.Stations))
	}
	// Insertion order survives persistence.
	if loaded.Stations[0].StationID != "S1" || loaded.Stations[1].StationID != "S2" {
		t.Errorf("station order not preserved: %q, %q", loaded.Stations[0].StationID, loaded.Stations[1].StationID)
	}
	if loaded.Stations[0].FacName == nil || *loaded.Stations[0].FacName != "Union Station" {
		t.Errorf("fac_name did not survive the round trip: %v", loaded.Stations[0].FacName)
	}
	// NULL columns come back as nil pointers, not empty strings.
	if loaded.Stations[1].FacName != nil {
		t.Errorf("expected nil fac_name, got %q", *loaded.Stations[1].FacName)
	}
	if len(loaded.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(loaded.Routes))
	}
	r := loaded.Routes[0]
	if r.RouteType == nil || *r.RouteType != 3 {
		t.Errorf("route_type = %v, want 3", r.RouteType)
	}
	if string(r.Coordinates) != `[[-118.24, 34.05], [-118.20, 34.10]]` {
		t.Errorf("coordinates changed in storage: %s", r.Coordinates)
	}
	if loaded.LowIncome == nil || len(loaded.LowIncome) != 0 {
		t.Errorf("expected empty non-nil lowincome collection, got %v", loaded.LowIncome)
	}
}

func TestSQLiteBackendReplaceSupersedes(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	first := sampleSnapshot()
	if err := backend.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("first SaveSnapshot failed: %v", err)
	}

	second := sampleSnapshot()
	second.Stations = second.Stations[:1]
	if err := backend.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("second SaveSnapshot failed: %v", err)
	}

	loaded, err := backend.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.ID != second.ID {
		t.Errorf("active snapshot = %q, want the newer %q", loaded.ID, second.ID)
	}
	if len(loaded.Stations) != 1 {
		t.Errorf("expected 1 station from the newer snapshot, got %d", len(loaded.Stations))
	}

	// The superseded snapshot is pruned, not just deactivated.
	var count int
	if err := backend.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		t.Fatalf("failed to count snapshots: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 snapshot row after replace, got %d", count)
	}
	if err := backend.db.QueryRow("SELECT COUNT(*) FROM stations WHERE snapshot_id != ?", second.ID).Scan(&count); err != nil {
		t.Fatalf("failed to count stale stations: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 stale station rows, got %d", count)
	}
}

func TestSQLiteBackendNullGeometry(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	// A record ingested with "geometry": null has no coordinate blob.
	snap := sampleSnapshot()
	snap.Bottlenecks = append(snap.Bottlenecks, models.Bottleneck{Name: strPtr("SR-99 SB")})
	if err := backend.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := backend.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(loaded.Bottlenecks) != 2 {
		t.Fatalf("expected 2 bottlenecks, got %d", len(loaded.Bottlenecks))
	}
	if loaded.Bottlenecks[1].Coordinates != nil {
		t.Errorf("expected nil coordinates, got %q", loaded.Bottlenecks[1].Coordinates)
	}
	// The loaded record must still serialize (coordinates as null), since
	// handlers encode it after the status line is already out.
	data, err := json.Marshal(loaded.Bottlenecks[1])
	if err != nil {
		t.Fatalf("failed to encode geometry-less bottleneck: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("encoded bottleneck is not an object: %v", err)
	}
	if string(fields["coordinates"]) != "null" {
		t.Errorf("coordinates = %s, want null", fields["coordinates"])
	}
}

func TestSQLiteBackendCorruptCoordinates(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	if err := backend.SaveSnapshot(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := backend.db.Exec("UPDATE routes SET coordinates = '{torn'"); err != nil {
		t.Fatalf("failed to corrupt coordinates: %v", err)
	}

	_, err := backend.LoadSnapshot(ctx)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Kind != "routes" {
		t.Errorf("DecodeError kind = %q, want routes", de.Kind)
	}
}
