package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration values.
type Config struct {
	Environment string
	LogLevel    string
	HTTPPort    string

	// Secret verifies bearer tokens on the local API. It must match the
	// backend's JWT secret so that access tokens issued there are accepted.
	Secret      string
	DatabaseDSN string

	BackendURL    string
	BackendAPIKey string
	PowerSyncURL  string
	// RemoteDatabaseDSN switches uploads to a direct Postgres connection
	// instead of the REST API when set.
	RemoteDatabaseDSN string

	SyncInterval        time.Duration
	SyncDeferAlertAfter int

	NotifyURL  string
	CatalogCSV string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	port := getEnv("HTTP_PORT", "8080")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Environment:         getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		HTTPPort:            port,
		Secret:              getEnv("JWT_SECRET", "dev_secret"),
		DatabaseDSN:         getEnv("DATABASE_DSN", "possync.db"),
		BackendURL:          getEnv("BACKEND_URL", "http://localhost:54321"),
		BackendAPIKey:       getEnv("BACKEND_API_KEY", ""),
		PowerSyncURL:        getEnv("POWERSYNC_URL", ""),
		RemoteDatabaseDSN:   getEnv("REMOTE_DATABASE_DSN", ""),
		SyncInterval:        getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncDeferAlertAfter: getEnvInt("SYNC_DEFER_ALERT_AFTER", 10),
		NotifyURL:           getEnv("NOTIFY_URL", ""),
		CatalogCSV:          getEnv("CATALOG_CSV", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %d", key, value, fallback)
		return fallback
	}
	return i
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("invalid %s value %q, defaulting to %s", key, value, fallback)
		return fallback
	}
	return d
}
