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

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if VOICEGUARD_CONFIG is set
//  3. env (prefix VOICEGUARD_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VOICEGUARD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VOICEGUARD_ADDR, VOICEGUARD_QUEUE_SIZE, ...
	// Map env keys like VOICEGUARD_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VOICEGUARD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "voiceguard_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the pipeline cannot run with.
func validate(cfg *Config) error {
	switch {
	case cfg.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.TargetSampleRate <= 0:
		return fmt.Errorf("%w: target_sample_rate must be positive", ErrInvalidConfig)
	case cfg.MinClipSeconds <= 0 || cfg.MaxClipSeconds <= cfg.MinClipSeconds:
		return fmt.Errorf("%w: clip duration bounds must satisfy 0 < min < max", ErrInvalidConfig)
	case cfg.WindowMS <= 0 || cfg.HopMS <= 0:
		return fmt.Errorf("%w: window_ms and hop_ms must be positive", ErrInvalidConfig)
	case cfg.HopMS > cfg.WindowMS:
		return fmt.Errorf("%w: hop_ms must not exceed window_ms", ErrInvalidConfig)
	case cfg.GenuineThreshold < 0 || cfg.SyntheticThreshold > 1 || cfg.GenuineThreshold >= cfg.SyntheticThreshold:
		return fmt.Errorf("%w: thresholds must satisfy 0 <= genuine < synthetic <= 1", ErrInvalidConfig)
	}
	return nil
}
