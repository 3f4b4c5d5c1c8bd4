package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Store kinds for the auth server's repositories
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the auth server configuration
type Config struct {
	DatabaseURL    string
	Store          string
	Port           string
	JWTSecret      string
	OTPSalt        string
	DevMode        bool
	AccessTokenTTL time.Duration
	LogLevel       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           "8080", // default port
		Store:          StorePostgres,
		AccessTokenTTL: 24 * time.Hour,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if store := os.Getenv("STORE"); store != "" {
		store = strings.ToLower(store)
		if store != StorePostgres && store != StoreMemory {
			return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, store)
		}
		cfg.Store = store
	}

	// DATABASE_URL is only needed for the Postgres store
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" && cfg.Store == StorePostgres {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	// Load PORT (optional, defaults to 8080)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Load JWT_SECRET (required)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	// Load OTP_SALT (required)
	otpSalt := os.Getenv("OTP_SALT")
	if otpSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}
	cfg.OTPSalt = otpSalt

	cfg.DevMode = os.Getenv("OTP_DEV_MODE") == "true"

	ttl, err := getDurationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	cfg.AccessTokenTTL = ttl

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
