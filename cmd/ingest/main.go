package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/you/transitmap/internal/config"
	"github.com/you/transitmap/internal/geo"
	"github.com/you/transitmap/internal/ingest"
	"github.com/you/transitmap/internal/store"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()

	// Command line flags override environment configuration
	dataDir := flag.String("data-dir", cfg.DataDir, "Directory for file-backend snapshot output")
	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite database (overrides file backend)")
	databaseURL := flag.String("database-url", cfg.DatabaseURL, "Postgres connection URL (overrides SQLite)")
	region := flag.String("region", cfg.RegionCode, "Region code for attribute containment")
	stations := flag.String("stations", cfg.StationsSource, "Station source (GeoJSON or CSV)")
	routes := flag.String("routes", cfg.RoutesSource, "Transit routes GeoJSON source")
	bottlenecks := flag.String("bottlenecks", cfg.BottlenecksSource, "Bottlenecks GeoJSON source")
	lowIncome := flag.String("lowincome", cfg.LowIncomeSource, "Low-income tracts GeoJSON source")
	flag.Parse()

	ctx := context.Background()

	backend, err := store.OpenBackend(ctx, *databaseURL, *dbPath, *dataDir)
	if err != nil {
		log.Fatalf("Failed to open snapshot backend: %v", err)
	}
	defer backend.Close()

	srcs := ingest.Sources{
		Stations:    *stations,
		Routes:      *routes,
		Bottlenecks: *bottlenecks,
		LowIncome:   *lowIncome,
	}

	res, err := ingest.Run(ctx, srcs, *region, geo.CaliforniaBounds, backend)
	if err != nil {
		// The previous snapshot is untouched; nothing was written.
		log.Fatalf("Ingestion failed: %v", err)
	}

	log.Printf("SUCCESS: snapshot %s published", res.SnapshotID)
}
