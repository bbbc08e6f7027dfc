// Package config provides 12-factor configuration management for the runner.
//
// Configuration is loaded from environment variables with sensible defaults
// and validated before use. CLI flags can override individual values.
//
// Configuration Sections:
//   - Runner: invocation deadline, payload ceiling, redacted keys
//   - Outbound: HTTP client timeout, retries, rate limit
//   - Nango: API and proxy base URLs
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting of the HTTP surface
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
