package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "X-Authenticated-User", cfg.Auth.UserHeader)
	assert.False(t, cfg.Auth.TrustHeader)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, 10*time.Minute, cfg.Generation.StaleAfter)
	assert.Equal(t, 3, cfg.Generation.MaxRetries)
	assert.Equal(t, 3, cfg.Generation.TopicConcurrency)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9000"
auth:
  trust_header: true
generation:
  stale_after: 5m
  max_retries: 0
timezone: UTC
`), 0o600))
	t.Setenv("DAYPLAN_RATELIMIT_REQUESTS_PER_HOUR", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.True(t, cfg.Auth.TrustHeader)
	assert.Equal(t, 5*time.Minute, cfg.Generation.StaleAfter)
	assert.Equal(t, 3, cfg.Generation.MaxRetries, "non-positive retries fall back to the default")
	assert.Equal(t, 7, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Server.Listen = "127.0.0.1:7070"
	cfg.Auth.ServiceToken = "secret"
	cfg.Generation.Cron = "*/5 * * * *"
	cfg.Log.JSON = true
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", loaded.Server.Listen)
	assert.Equal(t, "secret", loaded.Auth.ServiceToken)
	assert.Equal(t, "*/5 * * * *", loaded.Generation.Cron)
	assert.Equal(t, cfg.Server.ReadTimeout, loaded.Server.ReadTimeout)
	assert.True(t, loaded.Log.JSON)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, (&AppConfig{Timezone: "Nowhere/Special"}).Location())
	assert.Equal(t, time.Local, (&AppConfig{}).Location())
}
