// Package config loads the song service configuration from an optional YAML
// file and the environment.
//
// Environment variables use the SONGS_ prefix with dots replaced by
// underscores (SONGS_STORE_DRIVER, SONGS_SERVER_HTTP_PORT, ...). The
// variables used by earlier deployments are honoured as well:
// MONGO_URI, PORT and CORS_ORIGINS.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cron      CronConfig      `mapstructure:"cron"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Migrate    bool   `mapstructure:"migrate"`
	MaxConns   int32  `mapstructure:"max_conns"`
}

// RedisConfig configures the catalog event bus.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CORSConfig holds the write-origin allow-list. An empty list permits every
// origin.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig configures the per-IP limiter.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// CronConfig configures the scheduled statistics digest.
type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DigestSpec string `mapstructure:"digest_spec"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	Environment  string `mapstructure:"environment"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SONGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitOrigins(cfg.CORS.AllowedOrigins)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 5050)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", DriverMongo)
	v.SetDefault("store.dsn", "mongodb://localhost:27017")
	v.SetDefault("store.database", "song_manager")
	v.SetDefault("store.collection", "songs")
	v.SetDefault("store.migrate", true)
	v.SetDefault("store.max_conns", 25)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "songs:events")

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.digest_spec", "0 * * * *")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "song-svc")
	v.SetDefault("telemetry.environment", "development")

	v.SetDefault("log.level", "info")
}

// bindLegacyEnv maps the legacy deployment variable names onto keys.
// SONGS_* variables are bound first and take precedence.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"store.dsn":            {"SONGS_STORE_DSN", "MONGO_URI"},
		"server.http_port":     {"SONGS_SERVER_HTTP_PORT", "PORT"},
		"cors.allowed_origins": {"SONGS_CORS_ALLOWED_ORIGINS", "CORS_ORIGINS"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// splitOrigins normalises the allow-list. Values that arrive from the
// environment come through as a single comma separated string.
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// Validate checks the configuration for values the service cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server: invalid http_port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server: invalid grpc_port: %d", cfg.Server.GRPCPort)
	}
	if cfg.Server.GRPCPort != 0 && cfg.Server.GRPCPort == cfg.Server.HTTPPort {
		return fmt.Errorf("server: grpc_port cannot be the same as http_port")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server: shutdown_timeout cannot be negative")
	}

	switch cfg.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if cfg.Store.Database == "" || cfg.Store.Collection == "" {
			return fmt.Errorf("store: database and collection are required for mongo")
		}
		fallthrough
	case DriverPostgres:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store: dsn is required for driver %q", cfg.Store.Driver)
		}
	default:
		return fmt.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Host == "" {
			return fmt.Errorf("redis: host is required")
		}
		if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
			return fmt.Errorf("redis: invalid port: %d", cfg.Redis.Port)
		}
		if cfg.Redis.Channel == "" {
			return fmt.Errorf("redis: channel is required")
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit: rps and burst must be positive")
	}

	if cfg.Cron.Enabled && cfg.Cron.DigestSpec == "" {
		return fmt.Errorf("cron: digest_spec is required")
	}

	return nil
}
