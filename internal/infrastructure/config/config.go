package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Runner    RunnerConfig
	Outbound  OutboundConfig
	Nango     NangoConfig
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// RunnerConfig holds script execution configuration.
type RunnerConfig struct {
	Timeout          time.Duration `envconfig:"RUNNER_TIMEOUT" default:"5m" validate:"gt=0"`
	MaxFieldBytes    int           `envconfig:"RUNNER_MAX_FIELD_BYTES" default:"400000" validate:"gt=0"`
	RedactedKeys     []string      `envconfig:"RUNNER_REDACTED_KEYS" default:"Authorization,Proxy-Authorization"`
	MaxCallStackSize int           `envconfig:"RUNNER_MAX_CALL_STACK" default:"1024" validate:"gte=0"`
}

// OutboundConfig holds configuration of the HTTP client scripts call through.
type OutboundConfig struct {
	Timeout      time.Duration `envconfig:"OUTBOUND_TIMEOUT" default:"60s" validate:"gt=0"`
	Retries      int           `envconfig:"OUTBOUND_RETRIES" default:"0" validate:"gte=0,lte=10"`
	RetryWaitMin time.Duration `envconfig:"OUTBOUND_RETRY_WAIT_MIN" default:"1s"`
	RetryWaitMax time.Duration `envconfig:"OUTBOUND_RETRY_WAIT_MAX" default:"30s" validate:"gtefield=RetryWaitMin"`
	RateLimitRPS float64       `envconfig:"OUTBOUND_RATE_LIMIT_RPS" default:"0" validate:"gte=0"`
	UserAgent    string        `envconfig:"OUTBOUND_USER_AGENT" default:"syncrunner/1.0"`
}

// NangoConfig holds the addresses of the Nango API.
type NangoConfig struct {
	APIURL   string `envconfig:"NANGO_API_URL" default:"http://localhost:3003" validate:"required,url"`
	ProxyURL string `envconfig:"NANGO_PROXY_URL" validate:"omitempty,url"`
}

// ProxyBaseURL returns the proxy address, derived from the API address when unset.
func (n NangoConfig) ProxyBaseURL() string {
	if n.ProxyURL != "" {
		return n.ProxyURL
	}
	return strings.TrimRight(n.APIURL, "/") + "/proxy"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

var validate = validator.New()

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Runner: RunnerConfig{
			Timeout:          5 * time.Minute,
			MaxFieldBytes:    400_000,
			RedactedKeys:     []string{"Authorization", "Proxy-Authorization"},
			MaxCallStackSize: 1024,
		},
		Outbound: OutboundConfig{
			Timeout:      60 * time.Second,
			RetryWaitMin: time.Second,
			RetryWaitMax: 30 * time.Second,
			UserAgent:    "syncrunner/1.0",
		},
		Nango: NangoConfig{
			APIURL: "http://localhost:3003",
		},
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
