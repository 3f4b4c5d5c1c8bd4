package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Auth backend strategies
const (
	BackendMock   = "mock"
	BackendRemote = "remote"
)

// ClientConfig holds the rider client configuration
type ClientConfig struct {
	Backend       string
	APIURL        string
	APITimeout    time.Duration
	MockLatency   time.Duration
	SessionDir    string
	SessionSecret string
	RedisURL      string
	LogLevel      string
}

// LoadClient reads the client configuration from environment variables.
// The backend strategy is resolved here, once: AUTH_BACKEND wins, otherwise
// a configured API_URL selects the remote backend and its absence the mock.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIURL:        strings.TrimRight(os.Getenv("API_URL"), "/"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		RedisURL:      os.Getenv("REDIS_URL"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "warn")),
	}

	switch mode := strings.ToLower(os.Getenv("AUTH_BACKEND")); mode {
	case BackendMock, BackendRemote:
		cfg.Backend = mode
	case "":
		cfg.Backend = BackendMock
		if cfg.APIURL != "" {
			cfg.Backend = BackendRemote
		}
	default:
		return nil, fmt.Errorf("AUTH_BACKEND must be %q or %q, got %q", BackendMock, BackendRemote, mode)
	}

	if cfg.Backend == BackendRemote && cfg.APIURL == "" {
		return nil, fmt.Errorf("API_URL environment variable is required for the remote backend")
	}

	var err error
	if cfg.APITimeout, err = getDurationEnv("API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MockLatency, err = getDurationEnv("MOCK_LATENCY", 600*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.SessionDir = os.Getenv("SESSION_DIR")
	if cfg.SessionDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve session dir: %w", err)
		}
		cfg.SessionDir = filepath.Join(base, "rideshare")
	}

	return cfg, nil
}
