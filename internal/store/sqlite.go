package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/you/transitmap/internal/models"
)

// schemaSQL is the single source of truth for the snapshot schema,
// embedded at compile time from schema.sql.
//
//go:embed schema.sql
var schemaSQL string

// SQLiteBackend persists snapshots in a SQLite database, one table per
// record kind plus a snapshots table whose active flag is the publish
// point.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens the database with WAL mode enabled and ensures
// the schema exists.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// SaveSnapshot writes all collections and flips the active snapshot
// pointer in one transaction. Superseded snapshots are pruned in the same
// transaction; readers see the old snapshot until commit.
func (b *SQLiteBackend) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := snap.CreatedAt.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (snapshot_id, created_at_utc, active) VALUES (?, ?, 0)",
		snap.ID, createdAt,
	); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if err := insertStations(ctx, tx, snap); err != nil {
		return err
	}
	if err := insertRoutes(ctx, tx, snap); err != nil {
		return err
	}
	if err := insertBottlenecks(ctx, tx, snap); err != nil {
		return err
	}
	if err := insertLowIncome(ctx, tx, snap); err != nil {
		return err
	}

	// Publish the new snapshot and prune the superseded ones.
	if _, err := tx.ExecContext(ctx,
		"UPDATE snapshots SET active = (snapshot_id = ?)", snap.ID,
	); err != nil {
		return fmt.Errorf("failed to activate snapshot: %w", err)
	}
	for _, table := range []string{"stations", "routes", "bottlenecks", "low_income_tracts", "snapshots"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE snapshot_id != ?", table), snap.ID,
		); err != nil {
			return fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func insertStations(ctx context.Context, tx *sql.Tx, snap *Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (
			snapshot_id, ordinal, station_id, fac_name, address, city,
			state, zipcode, longitude, latitude, mode_type,
			mode_bus, mode_air, mode_rail, mode_ferry, mode_bike,
			website, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range snap.Stations {
		if _, err := stmt.ExecContext(ctx,
			snap.ID, i, s.StationID, s.FacName, s.Address, s.City,
			s.State, s.Zipcode, s.Longitude, s.Latitude, s.ModeType,
			s.ModeBus, s.ModeAir, s.ModeRail, s.ModeFerry, s.ModeBike,
			s.Website, s.Notes,
		); err != nil {
			return fmt.Errorf("failed to insert station %d: %w", i, err)
		}
	}
	return nil
}

func insertRoutes(ctx context.Context, tx *sql.Tx, snap *Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO routes (
			snapshot_id, ordinal, route_id, route_short_name,
			route_long_name, route_type, coordinates, geometry_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare route insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range snap.Routes {
		if _, err := stmt.ExecContext(ctx,
			snap.ID, i, r.RouteID, r.RouteShortName,
			r.RouteLongName, r.RouteType, string(r.Coordinates), r.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to insert route %d: %w", i, err)
		}
	}
	return nil
}

func insertBottlenecks(ctx context.Context, tx *sql.Tx, snap *Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bottlenecks (
			snapshot_id, ordinal, name, rank, county, direction,
			delay_hours, extent_miles, shape_length, coordinates, geometry_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare bottleneck insert: %w", err)
	}
	defer stmt.Close()

	for i, bn := range snap.Bottlenecks {
		if _, err := stmt.ExecContext(ctx,
			snap.ID, i, bn.Name, bn.Rank, bn.County, bn.Direction,
			bn.DelayHours, bn.ExtentMiles, bn.ShapeLength, string(bn.Coordinates), bn.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to insert bottleneck %d: %w", i, err)
		}
	}
	return nil
}

func insertLowIncome(ctx context.Context, tx *sql.Tx, snap *Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO low_income_tracts (
			snapshot_id, ordinal, geoid, tract, county, zip, population,
			poverty_pct, ci_score, dac_status, income_group, coordinates, geometry_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tract insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range snap.LowIncome {
		if _, err := stmt.ExecContext(ctx,
			snap.ID, i, t.Geoid, t.Tract, t.County, t.Zip, t.Population,
			t.PovertyPct, t.CIScore, t.DACStatus, t.IncomeGroup, string(t.Coordinates), t.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to insert tract %d: %w", i, err)
		}
	}
	return nil
}

// LoadSnapshot reads the active snapshot. Returns ErrNoSnapshot when no
// snapshot has been saved yet.
func (b *SQLiteBackend) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var createdAtStr string

	err := b.db.QueryRowContext(ctx,
		"SELECT snapshot_id, created_at_utc FROM snapshots WHERE active = 1",
	).Scan(&snap.ID, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to query active snapshot: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
		snap.CreatedAt = t
	}

	if err := b.loadStations(ctx, snap); err != nil {
		return nil, err
	}
	if err := b.loadRoutes(ctx, snap); err != nil {
		return nil, err
	}
	if err := b.loadBottlenecks(ctx, snap); err != nil {
		return nil, err
	}
	if err := b.loadLowIncome(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (b *SQLiteBackend) loadStations(ctx context.Context, snap *Snapshot) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT station_id, fac_name, address, city, state, zipcode,
		       longitude, latitude, mode_type,
		       mode_bus, mode_air, mode_rail, mode_ferry, mode_bike,
		       website, notes
		FROM stations WHERE snapshot_id = ? ORDER BY ordinal
	`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	snap.Stations = make([]models.Station, 0)
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(
			&s.StationID, &s.FacName, &s.Address, &s.City, &s.State, &s.Zipcode,
			&s.Longitude, &s.Latitude, &s.ModeType,
			&s.ModeBus, &s.ModeAir, &s.ModeRail, &s.ModeFerry, &s.ModeBike,
			&s.Website, &s.Notes,
		); err != nil {
			return fmt.Errorf("failed to scan station row: %w", err)
		}
		snap.Stations = append(snap.Stations, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating station rows: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) loadRoutes(ctx context.Context, snap *Snapshot) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT route_id, route_short_name, route_long_name, route_type,
		       coordinates, geometry_type
		FROM routes WHERE snapshot_id = ? ORDER BY ordinal
	`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	snap.Routes = make([]models.Route, 0)
	for rows.Next() {
		var r models.Route
		var coords string
		if err := rows.Scan(
			&r.RouteID, &r.RouteShortName, &r.RouteLongName, &r.RouteType,
			&coords, &r.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to scan route row: %w", err)
		}
		raw, err := rawCoordinates("routes", coords)
		if err != nil {
			return err
		}
		r.Coordinates = raw
		snap.Routes = append(snap.Routes, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating route rows: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) loadBottlenecks(ctx context.Context, snap *Snapshot) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT name, rank, county, direction, delay_hours, extent_miles,
		       shape_length, coordinates, geometry_type
		FROM bottlenecks WHERE snapshot_id = ? ORDER BY ordinal
	`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query bottlenecks: %w", err)
	}
	defer rows.Close()

	snap.Bottlenecks = make([]models.Bottleneck, 0)
	for rows.Next() {
		var bn models.Bottleneck
		var coords string
		if err := rows.Scan(
			&bn.Name, &bn.Rank, &bn.County, &bn.Direction, &bn.DelayHours,
			&bn.ExtentMiles, &bn.ShapeLength, &coords, &bn.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to scan bottleneck row: %w", err)
		}
		raw, err := rawCoordinates("bottlenecks", coords)
		if err != nil {
			return err
		}
		bn.Coordinates = raw
		snap.Bottlenecks = append(snap.Bottlenecks, bn)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating bottleneck rows: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) loadLowIncome(ctx context.Context, snap *Snapshot) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT geoid, tract, county, zip, population, poverty_pct,
		       ci_score, dac_status, income_group, coordinates, geometry_type
		FROM low_income_tracts WHERE snapshot_id = ? ORDER BY ordinal
	`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query low-income tracts: %w", err)
	}
	defer rows.Close()

	snap.LowIncome = make([]models.LowIncomeTract, 0)
	for rows.Next() {
		var t models.LowIncomeTract
		var coords string
		if err := rows.Scan(
			&t.Geoid, &t.Tract, &t.County, &t.Zip, &t.Population, &t.PovertyPct,
			&t.CIScore, &t.DACStatus, &t.IncomeGroup, &coords, &t.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to scan tract row: %w", err)
		}
		raw, err := rawCoordinates("lowincome", coords)
		if err != nil {
			return err
		}
		t.Coordinates = raw
		snap.LowIncome = append(snap.LowIncome, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tract rows: %w", err)
	}
	return nil
}

// rawCoordinates validates a stored geometry coordinate blob before it is
// served back out; corrupt content is a DecodeError, never partially
// served. An empty blob (a record ingested without geometry) comes back as
// a nil RawMessage, which marshals as null like the file backend's.
func rawCoordinates(kind, coords string) (json.RawMessage, error) {
	if coords == "" {
		return nil, nil
	}
	raw := json.RawMessage(coords)
	if !json.Valid(raw) {
		return nil, &DecodeError{Kind: kind, Path: "coordinates", Err: errors.New("invalid JSON")}
	}
	return raw, nil
}
