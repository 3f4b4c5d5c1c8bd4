package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setServerEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://rider:secret@db:5432/rideshare?sslmode=disable")
	t.Setenv("JWT_SECRET", "test-jwt-secret-at-least-32-characters-long")
	t.Setenv("OTP_SALT", "test-otp-salt")
	t.Setenv("STORE", "")
	t.Setenv("PORT", "")
	t.Setenv("OTP_DEV_MODE", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
}

func TestLoad_defaults(t *testing.T) {
	setServerEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.False(t, cfg.DevMode)
}

func TestLoad_requiredValues(t *testing.T) {
	setServerEnv(t)
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	setServerEnv(t)
	t.Setenv("OTP_SALT", "")
	_, err = Load()
	assert.ErrorContains(t, err, "OTP_SALT")

	setServerEnv(t)
	t.Setenv("DATABASE_URL", "")
	_, err = Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_memoryStoreNeedsNoDatabase(t *testing.T) {
	setServerEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE", "Memory")
	t.Setenv("OTP_DEV_MODE", "true")
	t.Setenv("ACCESS_TOKEN_TTL", "90m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 90*time.Minute, cfg.AccessTokenTTL)
}

func TestLoad_invalidValues(t *testing.T) {
	setServerEnv(t)
	t.Setenv("STORE", "mongo")
	_, err := Load()
	assert.Error(t, err)

	setServerEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "ACCESS_TOKEN_TTL")
}

func setClientEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AUTH_BACKEND", "API_URL", "API_TIMEOUT", "MOCK_LATENCY", "SESSION_SECRET", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	t.Setenv("SESSION_DIR", t.TempDir())
}

func TestLoadClient_defaultsToMock(t *testing.T) {
	setClientEnv(t)

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, BackendMock, cfg.Backend)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 600*time.Millisecond, cfg.MockLatency)
}

func TestLoadClient_apiURLSelectsRemote(t *testing.T) {
	setClientEnv(t)
	t.Setenv("API_URL", "https://api.example.com/")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.Backend)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
}

func TestLoadClient_explicitMockWinsOverURL(t *testing.T) {
	setClientEnv(t)
	t.Setenv("API_URL", "https://api.example.com")
	t.Setenv("AUTH_BACKEND", "mock")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, BackendMock, cfg.Backend)
}

func TestLoadClient_remoteRequiresURL(t *testing.T) {
	setClientEnv(t)
	t.Setenv("AUTH_BACKEND", "remote")

	_, err := LoadClient()
	assert.ErrorContains(t, err, "API_URL")
}

func TestLoadClient_rejectsUnknownBackend(t *testing.T) {
	setClientEnv(t)
	t.Setenv("AUTH_BACKEND", "grpc")

	_, err := LoadClient()
	assert.Error(t, err)
}

func TestLoadClient_durations(t *testing.T) {
	setClientEnv(t)
	t.Setenv("MOCK_LATENCY", "0s")
	t.Setenv("API_TIMEOUT", "3s")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Zero(t, cfg.MockLatency)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)

	t.Setenv("API_TIMEOUT", "-1s")
	_, err = LoadClient()
	assert.Error(t, err)
}
