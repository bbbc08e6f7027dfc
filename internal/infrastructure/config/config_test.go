package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Runner config
	assert.Equal(t, 5*time.Minute, cfg.Runner.Timeout)
	assert.Equal(t, 400000, cfg.Runner.MaxFieldBytes)
	assert.Equal(t, []string{"Authorization", "Proxy-Authorization"}, cfg.Runner.RedactedKeys)

	// Outbound config
	assert.Equal(t, 60*time.Second, cfg.Outbound.Timeout)
	assert.Equal(t, 0, cfg.Outbound.Retries)

	// Nango config
	assert.Equal(t, "http://localhost:3003", cfg.Nango.APIURL)
	assert.Equal(t, "http://localhost:3003/proxy", cfg.Nango.ProxyBaseURL())

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5*time.Minute, cfg.Runner.Timeout)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                   "9000",
		"HOST":                   "127.0.0.1",
		"RUNNER_TIMEOUT":         "30s",
		"RUNNER_MAX_FIELD_BYTES": "1024",
		"RUNNER_REDACTED_KEYS":   "Authorization,X-Api-Key",
		"OUTBOUND_TIMEOUT":       "5s",
		"OUTBOUND_RETRIES":       "2",
		"NANGO_API_URL":          "https://api.nango.dev",
		"NANGO_PROXY_URL":        "https://proxy.nango.dev",
		"LOG_LEVEL":              "debug",
		"LOG_DEV":                "true",
		"RATE_LIMIT_RPS":         "500",
		"RATE_LIMIT_BURST":       "1000",
		"RATE_LIMIT_ENABLED":     "false",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Runner.Timeout)
	assert.Equal(t, 1024, cfg.Runner.MaxFieldBytes)
	assert.Equal(t, []string{"Authorization", "X-Api-Key"}, cfg.Runner.RedactedKeys)
	assert.Equal(t, 5*time.Second, cfg.Outbound.Timeout)
	assert.Equal(t, 2, cfg.Outbound.Retries)
	assert.Equal(t, "https://proxy.nango.dev", cfg.Nango.ProxyBaseURL())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unparseable duration", "RUNNER_TIMEOUT", "soon"},
		{"zero ceiling", "RUNNER_MAX_FIELD_BYTES", "0"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"bad api url", "NANGO_API_URL", "not a url"},
		{"too many retries", "OUTBOUND_RETRIES", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestEnvironmentIsolation(t *testing.T) {
	_, set := os.LookupEnv("RUNNER_TIMEOUT")
	if set {
		t.Skip("RUNNER_TIMEOUT set in the test environment")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Runner, cfg.Runner)
}
