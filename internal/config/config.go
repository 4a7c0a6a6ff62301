// Package config loads and validates client config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds client configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the base URL of the course platform API (e.g. http://localhost:3000).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// DataDir is the directory holding the credential database and the seal salt. Defaults to ~/.al-ilm.
	DataDir string `mapstructure:"DATA_DIR"`
	// HTTPTimeout is the outbound HTTP timeout (e.g. "15s").
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// MinSplash is the minimum duration the bootstrap keeps the caller in the loading state (e.g. "1s").
	MinSplash string `mapstructure:"MIN_SPLASH"`
	// SealCredentials enables at-rest encryption of credential store values.
	SealCredentials bool `mapstructure:"SEAL_CREDENTIALS"`
	// AlwaysDeviceLogin controls the bootstrap policy: when true (observed app behavior),
	// a fresh device login runs on every cold start even if a valid persisted session exists.
	AlwaysDeviceLogin bool `mapstructure:"ALWAYS_DEVICE_LOGIN"`
	// OTLPEndpoint is the OTLP gRPC endpoint for telemetry (empty disables export).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:3000")
	v.SetDefault("DATA_DIR", "")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("MIN_SPLASH", "1s")
	v.SetDefault("SEAL_CREDENTIALS", false)
	v.SetDefault("ALWAYS_DEVICE_LOGIN", true)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return nil, errors.New("config: API_BASE_URL must start with http:// or https://")
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.New("config: DATA_DIR must be set when no home directory is available")
		}
		cfg.DataDir = filepath.Join(home, ".al-ilm")
	}

	return &cfg, nil
}

// Timeout parses HTTPTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// SplashDuration parses MinSplash as a time.Duration. Returns 1s if unset or invalid.
func (c *Config) SplashDuration() time.Duration {
	d, err := time.ParseDuration(c.MinSplash)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// DatabasePath returns the path of the credential database inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "credentials.db")
}
