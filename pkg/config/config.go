package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/accountgate/pkg/middleware"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/session"
	"github.com/platinummonkey/accountgate/pkg/sso"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

const (
	// EnvPrefix prefixes every environment variable read by Load
	EnvPrefix = "ACCOUNTGATE_"

	// FileEnv names the YAML file when no -config flag is given
	FileEnv = EnvPrefix + "CONFIG_FILE"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig               `yaml:"server" envPrefix:"SERVER_"`
	Store         storage.Config             `yaml:"store" envPrefix:"STORE_"`
	Provider      sso.Config                 `yaml:"provider" envPrefix:"PROVIDER_"`
	Session       session.Config             `yaml:"session" envPrefix:"SESSION_"`
	RateLimit     middleware.RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Observability ObservabilityConfig        `yaml:"observability" envPrefix:"OBSERVABILITY_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            string        `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`

	// Metrics and health probes are served on a separate port
	MetricsPort string `yaml:"metrics_port" env:"METRICS_PORT"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	MetricsEnabled bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED"`
	StatsSchedule  string `yaml:"stats_schedule" env:"STATS_SCHEDULE"`

	OTel observability.OTelConfig `yaml:"otel" envPrefix:"OTEL_"`
}

// Default returns the compiled-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			MetricsPort:     "9090",
		},
		Store: storage.DefaultConfig(),
		Provider: sso.Config{
			Scopes:  sso.DefaultScopes,
			Timeout: sso.DefaultTimeout,
		},
		Session: session.Config{
			CookieName: "accountgate",
			MaxAge:     8 * time.Hour,
			Secure:     true,
		},
		RateLimit: middleware.DefaultRateLimitConfig(),
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
			StatsSchedule:  observability.DefaultStatsSchedule,
			OTel: observability.OTelConfig{
				Endpoint:       "localhost:4317",
				ServiceName:    "accountgate",
				ServiceVersion: "1.0.0",
				Insecure:       true,
				SampleRatio:    1.0,
			},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// (or $ACCOUNTGATE_CONFIG_FILE) and ACCOUNTGATE_ environment variables, in that
// order of precedence, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MetricsPort == "" {
		return fmt.Errorf("metrics port is required")
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("server port and metrics port must be different")
	}

	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider: timeout must be positive")
	}

	switch c.Store.AccountBackend {
	case "memory":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres account backend")
		}
	default:
		return fmt.Errorf("invalid account backend: %s (must be postgres or memory)", c.Store.AccountBackend)
	}

	switch c.Store.SessionBackend {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis session backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be redis or memory)", c.Store.SessionBackend)
	}

	if len(c.Session.HashKey) < 32 {
		return fmt.Errorf("session hash key must be at least 32 bytes")
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("session block key must be 16, 24 or 32 bytes")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0) {
		return errors.New("rate limit requires positive requests_per_window and window")
	}

	switch c.Observability.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTel.Enabled {
		if c.Observability.OTel.Endpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTel.ServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// NewLogger builds the process logger from the observability settings
func (c *Config) NewLogger() *observability.Logger {
	level := observability.ParseLogLevel(c.Observability.LogLevel)
	if c.Observability.LogFormat == "text" {
		return observability.NewTextLogger(level, os.Stdout)
	}
	return observability.NewLogger(level, os.Stdout)
}
