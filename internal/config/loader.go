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

// Environment variable names.
const (
	EnvPrefix = "ARTYPE_"
	EnvFile   = "ARTYPE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARTYPE_CONFIG is set
//  3. env (prefix ARTYPE_)
//
// Env keys map to flat lower-case keys (ARTYPE_NOTIFIER_COUNT -> notifier_count).
// Nested maximum overrides use double underscores:
// ARTYPE_MAXIMUMS__BALANCED__L=14 -> maximums.balanced.L.
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.GuestStore = strings.ToLower(strings.TrimSpace(cfg.GuestStore))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "CONFIG" {
		return ""
	}
	parts := strings.Split(s, "__")
	for i, p := range parts {
		// Dimension letters keep their case so override keys read naturally.
		if i == 2 && len(p) == 1 {
			continue
		}
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
