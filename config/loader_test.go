package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1234, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "example.com", cfg.Journal.PlaceholderEmailDomain)
	assert.False(t, cfg.Journal.RequireExistingUser)
	assert.False(t, cfg.Auth.Required)
	assert.True(t, cfg.UsesDefaultSecret())
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8080
  mode: debug
database:
  driver: postgres
  dsn: postgres://u:p@localhost:5432/journal
redis:
  addr: localhost:6379
  cache_ttl: 30s
journal:
  require_existing_user: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("MINDJOURNAL_SERVER_PORT", "9090")
	t.Setenv("MINDJOURNAL_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("MINDJOURNAL_AUTH_ACCESS_TOKEN_TTL", "1h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.True(t, cfg.Journal.RequireExistingUser)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MINDJOURNAL_DATABASE_DRIVER", "oracle")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("MINDJOURNAL_SERVER_PORT"))
	assert.Equal(t, "journal.require_existing_user", envKey("MINDJOURNAL_JOURNAL_REQUIRE_EXISTING_USER"))
	assert.Equal(t, "telemetry.service_name", envKey("MINDJOURNAL_TELEMETRY_SERVICE_NAME"))
}

func TestLoadCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("MINDJOURNAL_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}
