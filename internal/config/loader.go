package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment naming.
const (
	EnvPrefix     = "GRIDCAST_"
	EnvConfigFile = "GRIDCAST_CONFIG"

	metricsEnvPrefix = "metrics_"
)

// LoadOption adjusts a Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	file string
}

// WithFile reads path as the YAML layer instead of $GRIDCAST_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) from WithFile or GRIDCAST_CONFIG
//  3. env (prefix GRIDCAST_)
//
// Load does not validate: flags still apply on top, so callers run Validate
// once the final values are known.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{file: os.Getenv(EnvConfigFile)}
	for _, opt := range opts {
		opt(&o)
	}

	base := New(ctx)
	k := koanf.New(".")

	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, o.file, err)
		}
	}

	// GRIDCAST_LOAD_WORKERS -> load_workers; underscores are kept to match the
	// flat koanf tags. GRIDCAST_METRICS_PREFIX -> metrics.prefix.
	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	if rest, ok := strings.CutPrefix(key, metricsEnvPrefix); ok {
		return "metrics." + rest
	}
	return key
}
