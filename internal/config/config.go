package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr             string
	DBPath           string
	LogLevel         string
	CapacityBytes    int64
	SoftLimitBytes   int64
	BackupLimitBytes int64
	BackupInterval   time.Duration
	AutosaveDelay    time.Duration
	RetentionDays    int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:             envOr("ADDR", ":8080"),
		DBPath:           envOr("DB_PATH", "testdeck.db"),
		LogLevel:         envOr("LOG_LEVEL", "INFO"),
		CapacityBytes:    envInt64Or("STORAGE_CAPACITY_BYTES", 5<<20),
		SoftLimitBytes:   envInt64Or("SOFT_LIMIT_BYTES", 4<<20),
		BackupLimitBytes: envInt64Or("BACKUP_LIMIT_BYTES", 3<<20),
		BackupInterval:   envDurOr("BACKUP_INTERVAL", 10*time.Minute),
		AutosaveDelay:    envDurOr("AUTOSAVE_DELAY", 2*time.Second),
		RetentionDays:    envIntOr("RETENTION_DAYS", 30),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envInt64Or(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
