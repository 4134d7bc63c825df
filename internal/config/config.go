// Package config defines client configuration and its loading hooks.
//
// Conventions:
//   - New() builds a Config with defaults.
//   - Load(ctx) layers defaults, an optional YAML file and ECH0_ env vars.
//   - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// BaseAPI is the absolute base URL every request path is joined to.
	BaseAPI string `koanf:"base_api"`

	// TimeoutMS bounds one round trip; 0 means the transport default.
	TimeoutMS int `koanf:"timeout_ms"`

	// SessionFile persists the session token between CLI runs when set.
	SessionFile string `koanf:"session_file"`

	// NotifyQueueSize bounds the in-memory toast queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// IncludeCredentials sends and stores cookies on every call.
	IncludeCredentials bool `koanf:"include_credentials"`

	// MetricsAddr exposes /metrics on this address when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		BaseAPI:         "http://localhost:1314/api",
		TimeoutMS:       10_000,
		NotifyQueueSize: 64,
	}
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
