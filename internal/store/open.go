package store

import (
	"context"
	"log"
)

// OpenBackend selects the snapshot backend: Postgres when a database URL
// is configured, SQLite when a database path is configured, flat JSON
// files in dataDir otherwise.
func OpenBackend(ctx context.Context, databaseURL, sqlitePath, dataDir string) (Backend, error) {
	switch {
	case databaseURL != "":
		log.Println("Using Postgres snapshot backend")
		return NewPostgresBackend(ctx, databaseURL)
	case sqlitePath != "":
		log.Printf("Using SQLite snapshot backend: %s", sqlitePath)
		return NewSQLiteBackend(sqlitePath)
	default:
		log.Printf("Using file snapshot backend: %s", dataDir)
		return NewFileBackend(dataDir)
	}
}

// BackendSource adapts a Backend to the per-request snapshot read used by
// the query engine when no in-memory store is configured.
type BackendSource struct {
	Backend Backend
}

// ActiveSnapshot loads the persisted active snapshot.
func (s BackendSource) ActiveSnapshot(ctx context.Context) (*Snapshot, error) {
	return s.Backend.LoadSnapshot(ctx)
}
