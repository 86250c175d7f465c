package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 10000, cfg.Auth.PasswordIterations)
	assert.Equal(t, time.Duration(0), cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("TOKEN_TTL", "24h")
	t.Setenv("FRONTEND_ORIGIN", "https://board.example.com, http://localhost:3000")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "secret1")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://board.example.com", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Admin.Enabled())
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
database:
  driver: memory
log:
  level: debug
`), 0o600))

	t.Setenv("LOG_LEVEL", "warn")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--port", "7100"}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port, "changed flag wins")
	assert.Equal(t, DriverMemory, cfg.Database.Driver, "unchanged flag keeps file value")
	assert.Equal(t, "warn", cfg.Log.Level, "environment overrides file")
}

func TestEnvTransform(t *testing.T) {
	key, value := envTransform("JWT_SECRET", "s3cret")
	assert.Equal(t, "auth.jwt_secret", key)
	assert.Equal(t, "s3cret", value)

	key, value = envTransform("FRONTEND_ORIGIN", "a, ,b")
	assert.Equal(t, "server.allowed_origins", key)
	assert.Equal(t, []string{"a", "b"}, value)

	key, _ = envTransform("PATH", "/usr/bin")
	assert.Empty(t, key)
}

func TestUnknownEnvironmentIgnored(t *testing.T) {
	t.Setenv("SERVER_PORTS", "1")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongodb")

	_, err := LoadConfig(nil)
	assert.Error(t, err)
}
