package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5050, cfg.Server.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.DSN)
	assert.Equal(t, "songs", cfg.Store.Collection)
	assert.Equal(t, "songs:events", cfg.Redis.Channel)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_LegacyEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.Store.DSN)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("SONGS_SERVER_HTTP_PORT", "9090")
	t.Setenv("SONGS_STORE_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "songs.yaml")
	content := `
server:
  http_port: 7000
  grpc_port: 7001
store:
  driver: postgres
  dsn: postgres://songs@localhost/songs?sslmode=disable
cors:
  allowed_origins:
    - https://app.example
redis:
  enabled: true
  host: cache
  port: 6380
cron:
  enabled: true
  digest_spec: "*/5 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.HTTPPort)
	assert.Equal(t, 7001, cfg.Server.GRPCPort)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
	assert.Equal(t, "*/5 * * * *", cfg.Cron.DigestSpec)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: 5050},
		Store:  StoreConfig{Driver: DriverMongo, DSN: "mongodb://x", Database: "d", Collection: "c"},
		Redis:  RedisConfig{Host: "localhost", Port: 6379, Channel: "songs:events"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad http port", func(c *Config) { c.Server.HTTPPort = 0 }, true},
		{"grpc equals http", func(c *Config) { c.Server.GRPCPort = 5050 }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, true},
		{"mongo without collection", func(c *Config) { c.Store.Collection = "" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres; c.Store.DSN = "" }, true},
		{"memory needs nothing", func(c *Config) { c.Store = StoreConfig{Driver: DriverMemory} }, false},
		{"redis without channel", func(c *Config) { c.Redis.Enabled = true; c.Redis.Channel = "" }, true},
		{"rate limit zero burst", func(c *Config) { c.RateLimit = RateLimitConfig{Enabled: true, RPS: 1} }, true},
		{"cron without spec", func(c *Config) { c.Cron.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
