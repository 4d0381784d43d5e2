package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the API server and the ingestion job
type Config struct {
	// Server
	Port           string
	AllowedOrigins []string
	StaticDir      string

	// Snapshot storage. DATABASE_URL selects Postgres, SQLITE_DATABASE
	// selects SQLite, otherwise flat JSON files under DataDir are used.
	DataDir     string
	SQLitePath  string
	DatabaseURL string

	// ReloadInterval > 0 serves queries from an in-memory snapshot that is
	// refreshed from the backend on this interval; 0 reads the backend on
	// every request.
	ReloadInterval time.Duration

	// Ingestion
	RegionCode        string
	StationsSource    string
	RoutesSource      string
	BottlenecksSource string
	LowIncomeSource   string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		StaticDir:      getEnv("STATIC_DIR", ""),

		DataDir:     getEnv("DATA_DIR", "./data"),
		SQLitePath:  getEnv("SQLITE_DATABASE", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		ReloadInterval: time.Duration(getEnvInt("RELOAD_SECONDS", 0)) * time.Second,

		RegionCode: getEnv("REGION_CODE", "CA"),
	}

	// Raw source files default to a sources directory next to the
	// persisted snapshot files.
	sourcesDir := getEnv("SOURCES_DIR", filepath.Join(cfg.DataDir, "sources"))
	cfg.StationsSource = getEnv("STATIONS_SOURCE", filepath.Join(sourcesDir, "stations.geojson"))
	cfg.RoutesSource = getEnv("ROUTES_SOURCE", filepath.Join(sourcesDir, "transit_routes.geojson"))
	cfg.BottlenecksSource = getEnv("BOTTLENECKS_SOURCE", filepath.Join(sourcesDir, "bottlenecks.geojson"))
	cfg.LowIncomeSource = getEnv("LOWINCOME_SOURCE", filepath.Join(sourcesDir, "low_income.geojson"))

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
