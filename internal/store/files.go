package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Persisted artifact layout: one flat JSON array per record kind. The file
// names are the contract the map frontend's static data loader expects.
const (
	stationsFile    = "data.json"
	routesFile      = "routes.json"
	bottlenecksFile = "bottlenecks.json"
	lowIncomeFile   = "low_income.json"
	manifestFile    = "snapshot.json"
)

type manifest struct {
	SnapshotID string `json:"snapshot_id"`
	CreatedAt  string `json:"created_at_utc"`
}

// FileBackend persists each collection as a flat JSON file in a directory.
// Files are written to a temp name and renamed into place, and the manifest
// is written last, so a crashed save never leaves a torn snapshot behind.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir, creating it if
// needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// SaveSnapshot writes all four collection files and then the manifest.
func (b *FileBackend) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := b.writeJSON(stationsFile, emptyIfNil(snap.Stations)); err != nil {
		return err
	}
	if err := b.writeJSON(routesFile, emptyIfNil(snap.Routes)); err != nil {
		return err
	}
	if err := b.writeJSON(bottlenecksFile, emptyIfNil(snap.Bottlenecks)); err != nil {
		return err
	}
	if err := b.writeJSON(lowIncomeFile, emptyIfNil(snap.LowIncome)); err != nil {
		return err
	}

	m := manifest{
		SnapshotID: snap.ID,
		CreatedAt:  snap.CreatedAt.UTC().Format(time.RFC3339),
	}
	return b.writeJSON(manifestFile, m)
}

// LoadSnapshot reads whichever collection files exist. A missing file
// leaves that collection nil; corrupt content is a DecodeError. Only when
// no collection file exists at all does it return ErrNoSnapshot.
func (b *FileBackend) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	found := 0

	if ok, err := readJSON(filepath.Join(b.dir, stationsFile), "stations", &snap.Stations); err != nil {
		return nil, err
	} else if ok {
		found++
	}
	if ok, err := readJSON(filepath.Join(b.dir, routesFile), "routes", &snap.Routes); err != nil {
		return nil, err
	} else if ok {
		found++
	}
	if ok, err := readJSON(filepath.Join(b.dir, bottlenecksFile), "bottlenecks", &snap.Bottlenecks); err != nil {
		return nil, err
	} else if ok {
		found++
	}
	if ok, err := readJSON(filepath.Join(b.dir, lowIncomeFile), "lowincome", &snap.LowIncome); err != nil {
		return nil, err
	} else if ok {
		found++
	}

	if found == 0 {
		return nil, ErrNoSnapshot
	}

	var m manifest
	if _, err := readJSON(filepath.Join(b.dir, manifestFile), "manifest", &m); err == nil {
		snap.ID = m.SnapshotID
		if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
			snap.CreatedAt = t
		}
	}

	return snap, nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) writeJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(b.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}
	return nil
}

func readJSON(path, kind string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, &DecodeError{Kind: kind, Path: path, Err: err}
	}
	return true, nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
