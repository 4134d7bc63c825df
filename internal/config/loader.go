package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "ECH0_"
	envConfigPath = "ECH0_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ECH0_CONFIG is set
//  3. env (prefix ECH0_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ECH0_BASE_API -> base_api. Underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The path selector itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseAPI) == "" {
		return fmt.Errorf("%w: base_api must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseAPI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: base_api must be an absolute URL: %q", ErrInvalidConfig, c.BaseAPI)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("%w: timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.NotifyQueueSize < 0 {
		return fmt.Errorf("%w: notify_queue_size must not be negative", ErrInvalidConfig)
	}
	return nil
}
