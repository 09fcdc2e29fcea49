// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIKey authenticates requests via the X-API-Key header.
	// An empty key disables authentication (development only).
	APIKey string `koanf:"api_key"`

	// JobQueueSize bounds the in-memory analysis job queue.
	JobQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// CacheSize bounds the verdict cache (clip digest -> verdict).
	CacheSize int `koanf:"cache_size"`

	// ReviewTopCacheSize bounds the review store's precomputed top-N snapshot.
	ReviewTopCacheSize int `koanf:"review_top_cache_size"`

	// MaxReviewLimit caps GET /v1/review?limit.
	MaxReviewLimit int `koanf:"max_review_limit"`

	// Audio normalization policy.
	TargetSampleRate int     `koanf:"target_sample_rate"`
	MinClipSeconds   float64 `koanf:"min_clip_seconds"`
	MaxClipSeconds   float64 `koanf:"max_clip_seconds"`
	SilenceRMSFloor  float64 `koanf:"silence_rms_floor"`

	// Framing policy.
	WindowMS int `koanf:"window_ms"`
	HopMS    int `koanf:"hop_ms"`

	// Decision policy.
	GenuineThreshold   float64            `koanf:"genuine_threshold"`
	SyntheticThreshold float64            `koanf:"synthetic_threshold"`
	MaxPaddingRatio    float64            `koanf:"max_padding_ratio"`
	MaxDegenerateRatio float64            `koanf:"max_degenerate_ratio"`
	DimensionWeights   map[string]float64 `koanf:"dimension_weights"`

	// Backend selects the scoring backend by registered name.
	Backend string `koanf:"backend"`
}

// New creates a Config populated with defaults. Numeric policy values here
// are defaults, not contracts; deployments override them via file or env.
func New() *Config {
	c := &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		APIKey:             "",
		JobQueueSize:       10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		CacheSize:          50_000,
		ReviewTopCacheSize: 500,
		MaxReviewLimit:     100,
		TargetSampleRate:   16_000,
		MinClipSeconds:     0.5,
		MaxClipSeconds:     30,
		SilenceRMSFloor:    0.001,
		WindowMS:           25,
		HopMS:              10,

		GenuineThreshold:   0.35,
		SyntheticThreshold: 0.65,
		MaxPaddingRatio:    0.5,
		MaxDegenerateRatio: 0.5,
		DimensionWeights: map[string]float64{
			"synthesis":        1.0,
			"replay":           0.8,
			"channel-mismatch": 0.6,
		},
		Backend: "heuristic-v1",
	}
	return c
}
