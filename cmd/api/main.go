package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/you/transitmap/internal/config"
	"github.com/you/transitmap/internal/handlers"
	"github.com/you/transitmap/internal/query"
	"github.com/you/transitmap/internal/store"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()

	backend, err := store.OpenBackend(context.Background(), cfg.DatabaseURL, cfg.SQLitePath, cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open snapshot backend: %v", err)
	}
	defer backend.Close()

	// With a reload interval the API serves from an in-memory snapshot
	// refreshed in the background; otherwise every request reads the
	// persisted snapshot directly.
	var src query.SnapshotSource
	if cfg.ReloadInterval > 0 {
		st := store.New()
		if err := reload(backend, st); err != nil {
			log.Printf("Warning: initial snapshot load failed: %v", err)
		}
		go reloadLoop(backend, st, cfg.ReloadInterval)
		src = st
	} else {
		src = store.BackendSource{Backend: backend}
	}

	engine := query.NewEngine(src)

	stationHandler := handlers.NewStationHandler(engine)
	routeHandler := handlers.NewRouteHandler(engine)
	bottleneckHandler := handlers.NewBottleneckHandler(engine)
	lowIncomeHandler := handlers.NewLowIncomeHandler(engine)
	combinedHandler := handlers.NewCombinedHandler(engine)
	healthHandler := handlers.NewHealthHandler(src)

	// Setup router
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.GetHealth)

	r.Get("/api/stations", stationHandler.GetStations)
	r.Get("/api/routes", routeHandler.GetRoutes)
	r.Get("/api/routes/geojson", routeHandler.GetRoutesGeoJSON)
	r.Get("/api/bottlenecks", bottleneckHandler.GetBottlenecks)
	r.Get("/api/bottlenecks/geojson", bottleneckHandler.GetBottlenecksGeoJSON)
	r.Get("/api/lowincome", lowIncomeHandler.GetLowIncome)
	r.Get("/api/lowincome/geojson", lowIncomeHandler.GetLowIncomeGeoJSON)
	r.Get("/api/combined", combinedHandler.GetCombined)

	// Static file serving (if configured)
	if cfg.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/*", fs)
	}

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Endpoints:")
	log.Println("  GET /api/stations?state=&mode=")
	log.Println("  GET /api/routes?route_type=&state=&agency=")
	log.Println("  GET /api/routes/geojson")
	log.Println("  GET /api/bottlenecks[/geojson]")
	log.Println("  GET /api/lowincome[/geojson]")
	log.Println("  GET /api/combined?state=")
	log.Println("  GET /health")

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// reload publishes the backend's active snapshot into the store as one
// atomic swap. A missing snapshot is not an error at startup; the store
// simply stays empty until ingestion runs.
func reload(backend store.Backend, st *store.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := backend.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			return nil
		}
		return err
	}

	st.ReplaceAll(snap)
	return nil
}

func reloadLoop(backend store.Backend, st *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := reload(backend, st); err != nil {
			// Keep serving the previous snapshot.
			log.Printf("Warning: snapshot reload failed: %v", err)
		}
	}
}
