package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/you/transitmap/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id    TEXT PRIMARY KEY,
    created_at_utc TIMESTAMPTZ NOT NULL,
    active         BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS stations (
    snapshot_id TEXT NOT NULL,
    ordinal     INTEGER NOT NULL,
    station_id  TEXT,
    fac_name    TEXT,
    address     TEXT,
    city        TEXT,
    state       TEXT NOT NULL,
    zipcode     TEXT,
    longitude   DOUBLE PRECISION NOT NULL,
    latitude    DOUBLE PRECISION NOT NULL,
    mode_type   TEXT,
    mode_bus    INTEGER NOT NULL,
    mode_air    INTEGER NOT NULL,
    mode_rail   INTEGER NOT NULL,
    mode_ferry  INTEGER NOT NULL,
    mode_bike   INTEGER NOT NULL,
    website     TEXT,
    notes       TEXT,
    PRIMARY KEY (snapshot_id, ordinal)
);

CREATE TABLE IF NOT EXISTS routes (
    snapshot_id      TEXT NOT NULL,
    ordinal          INTEGER NOT NULL,
    route_id         TEXT,
    route_short_name TEXT,
    route_long_name  TEXT,
    route_type       INTEGER,
    coordinates      TEXT NOT NULL,
    geometry_type    TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, ordinal)
);

CREATE TABLE IF NOT EXISTS bottlenecks (
    snapshot_id   TEXT NOT NULL,
    ordinal       INTEGER NOT NULL,
    name          TEXT,
    rank          INTEGER,
    county        TEXT,
    direction     TEXT,
    delay_hours   DOUBLE PRECISION,
    extent_miles  DOUBLE PRECISION,
    shape_length  DOUBLE PRECISION,
    coordinates   TEXT NOT NULL,
    geometry_type TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, ordinal)
);

CREATE TABLE IF NOT EXISTS low_income_tracts (
    snapshot_id   TEXT NOT NULL,
    ordinal       INTEGER NOT NULL,
    geoid         TEXT,
    tract         TEXT,
    county        TEXT,
    zip           TEXT,
    population    INTEGER,
    poverty_pct   DOUBLE PRECISION,
    ci_score      DOUBLE PRECISION,
    dac_status    TEXT,
    income_group  TEXT,
    coordinates   TEXT NOT NULL,
    geometry_type TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, ordinal)
);
`

// PostgresBackend persists snapshots in Postgres with the same contract as
// the SQLite backend: one table per record kind, active pointer flipped
// transactionally.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to databaseURL and ensures the schema exists.
func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresBackend{pool: pool}, nil
}

// Close closes the connection pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// SaveSnapshot writes all collections and flips the active snapshot
// pointer in one transaction, pruning superseded snapshots.
func (b *PostgresBackend) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"INSERT INTO snapshots (snapshot_id, created_at_utc, active) VALUES ($1, $2, FALSE)",
		snap.ID, snap.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	for i, s := range snap.Stations {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stations (
				snapshot_id, ordinal, station_id, fac_name, address, city,
				state, zipcode, longitude, latitude, mode_type,
				mode_bus, mode_air, mode_rail, mode_ferry, mode_bike,
				website, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`,
			snap.ID, i, s.StationID, s.FacName, s.Address, s.City,
			s.State, s.Zipcode, s.Longitude, s.Latitude, s.ModeType,
			s.ModeBus, s.ModeAir, s.ModeRail, s.ModeFerry, s.ModeBike,
			s.Website, s.Notes,
		); err != nil {
			return fmt.Errorf("failed to insert station %d: %w", i, err)
		}
	}

	for i, r := range snap.Routes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO routes (
				snapshot_id, ordinal, route_id, route_short_name,
				route_long_name, route_type, coordinates, geometry_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			snap.ID, i, r.RouteID, r.RouteShortName,
			r.RouteLongName, r.RouteType, string(r.Coordinates), r.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to insert route %d: %w", i, err)
		}
	}

	for i, bn := range snap.Bottlenecks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO bottlenecks (
				snapshot_id, ordinal, name, rank, county, direction,
				delay_hours, extent_miles, shape_length, coordinates, geometry_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			snap.ID, i, bn.Name, bn.Rank, bn.County, bn.Direction,
			bn.DelayHours, bn.ExtentMiles, bn.ShapeLength, string(bn.Coordinates), bn.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to insert bottleneck %d: %w", i, err)
		}
	}

	for i, t := range snap.LowIncome {
		if _, err := tx.Exec(ctx, `
			INSERT INTO low_income_tracts (
				snapshot_id, ordinal, geoid, tract, county, zip, population,
				poverty_pct, ci_score, dac_status, income_group, coordinates, geometry_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			snap.ID, i, t.Geoid, t.Tract, t.County, t.Zip, t.Population,
			t.PovertyPct, t.CIScore, t.DACStatus, t.IncomeGroup, string(t.Coordinates), t.GeometryType,
		); err != nil {
			return fmt.Errorf("failed to insert tract %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE snapshots SET active = (snapshot_id = $1)", snap.ID,
	); err != nil {
		return fmt.Errorf("failed to activate snapshot: %w", err)
	}
	for _, table := range []string{"stations", "routes", "bottlenecks", "low_income_tracts", "snapshots"} {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE snapshot_id != $1", table), snap.ID,
		); err != nil {
			return fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the active snapshot. Returns ErrNoSnapshot when no
// snapshot has been saved yet.
func (b *PostgresBackend) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var createdAt time.Time

	err := b.pool.QueryRow(ctx,
		"SELECT snapshot_id, created_at_utc FROM snapshots WHERE active",
	).Scan(&snap.ID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to query active snapshot: %w", err)
	}
	snap.CreatedAt = createdAt.UTC()

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

func (b *PostgresBackend) loadStations(ctx context.Context, snap *Snapshot) error {
	rows, err := b.pool.Query(ctx, `
		SELECT station_id, fac_name, address, city, state, zipcode,
		       longitude, latitude, mode_type,
		       mode_bus, mode_air, mode_rail, mode_ferry, mode_bike,
		       website, notes
		FROM stations WHERE snapshot_id = $1 ORDER BY ordinal
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

func (b *PostgresBackend) loadRoutes(ctx context.Context, snap *Snapshot) error {
	rows, err := b.pool.Query(ctx, `
		SELECT route_id, route_short_name, route_long_name, route_type,
		       coordinates, geometry_type
		FROM routes WHERE snapshot_id = $1 ORDER BY ordinal
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

func (b *PostgresBackend) loadBottlenecks(ctx context.Context, snap *Snapshot) error {
	rows, err := b.pool.Query(ctx, `
		SELECT name, rank, county, direction, delay_hours, extent_miles,
		       shape_length, coordinates, geometry_type
		FROM bottlenecks WHERE snapshot_id = $1 ORDER BY ordinal
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

func (b *PostgresBackend) loadLowIncome(ctx context.Context, snap *Snapshot) error {
	rows, err := b.pool.Query(ctx, `
		SELECT geoid, tract, county, zip, population, poverty_pct,
		       ci_score, dac_status, income_group, coordinates, geometry_type
		FROM low_income_tracts WHERE snapshot_id = $1 ORDER BY ordinal
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
