// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes database selection,
// loader tuning, logging, the optional monitor server, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig selects and parameterizes the storage backend.
type DatabaseConfig struct {
	Driver      string // DB_DRIVER: sqlite|postgres
	Path        string // DB_PATH: SQLite file path (sqlite driver)
	DSN         string // DB_DSN: connection string (postgres driver)
	AutoMigrate bool   // AUTO_MIGRATE: create/upgrade the schema on start
}

// LoaderConfig tunes the batch runner.
type LoaderConfig struct {
	Workers       int     // WORKERS: concurrent ingest workers (>= 1)
	QueueDepth    int     // QUEUE_DEPTH: lines buffered ahead of the pool (>= 1)
	RateRPS       float64 // RATE_RPS: records/second, 0 disables the throttle
	ProgressEvery int64   // PROGRESS_EVERY: progress log interval in records (>= 1)
}

// MonitorConfig configures the operational HTTP server that runs next to a
// load. An empty listen address keeps the server off.
type MonitorConfig struct {
	ListenAddr     string   // LISTEN_ADDR (e.g. ":8080")
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-post-archive")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	Database DatabaseConfig
	Loader   LoaderConfig
	Monitor  MonitorConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		Database: DatabaseConfig{
			Driver:      strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:        getenv("DB_PATH", "archive.db"),
			DSN:         getenv("DB_DSN", ""),
			AutoMigrate: getbool("AUTO_MIGRATE", true),
		},

		Loader: LoaderConfig{
			Workers:       getint("WORKERS", 4),
			QueueDepth:    getint("QUEUE_DEPTH", 256),
			RateRPS:       getfloat("RATE_RPS", 0),
			ProgressEvery: int64(getint("PROGRESS_EVERY", 10000)),
		},

		Monitor: MonitorConfig{
			ListenAddr:     getenv("LISTEN_ADDR", ""),
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-post-archive"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	switch cfg.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Database.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty with the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			return cfg, errors.New("DB_DSN must not be empty with the postgres driver")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if cfg.Loader.Workers < 1 {
		return cfg, errors.New("WORKERS must be >= 1")
	}
	if cfg.Loader.QueueDepth < 1 {
		return cfg, errors.New("QUEUE_DEPTH must be >= 1")
	}
	if cfg.Loader.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.Loader.ProgressEvery < 1 {
		return cfg, errors.New("PROGRESS_EVERY must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
