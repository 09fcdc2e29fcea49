// Package scoring defines the contract for turning clip feature vectors into
// per-dimension spoofing risk scores.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/feature"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
)

// dimensions is the fixed order sub-scores are emitted in.
var dimensions = []string{model.DimSynthesis, model.DimReplay, model.DimChannelMismatch}

// Default per-dimension confidence weights for backends that do not supply
// their own. Synthesis cues are the strongest signal a heuristic backend has.
var defaultConfidences = map[string]float64{
	model.DimSynthesis:       0.9,
	model.DimReplay:          0.5,
	model.DimChannelMismatch: 0.4,
}

// Backend produces raw per-dimension predictions from a clip vector. The
// implementation may call out to an external model service; Predict honors
// ctx for cancellation.
type Backend interface {
	// Name identifies the backend, e.g. "heuristic-v1".
	Name() string
	// SchemaVersion is the feature schema this backend was built against.
	SchemaVersion() string
	// Predict returns one raw score per dimension in package order
	// {synthesis, replay, channel-mismatch}.
	Predict(ctx context.Context, clip feature.ClipVector) ([]float64, error)
	// Calibrate maps raw predictions onto [0,1] risk values.
	Calibrate(raw []float64) []float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithConfidence overrides the confidence weight attached to a dimension's
// sub-score.
func WithConfidence(dimension string, confidence float64) Option {
	return func(e *Engine) {
		if confidence >= 0 && confidence <= 1 {
			e.confidences[dimension] = confidence
		}
	}
}

// Engine wraps a Backend with schema enforcement and sub-score assembly.
type Engine struct {
	backend     Backend
	confidences map[string]float64
}

// NewEngine creates an Engine around a backend with configuration options.
func NewEngine(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:     backend,
		confidences: make(map[string]float64, len(defaultConfidences)),
	}
	for d, c := range defaultConfidences {
		e.confidences[d] = c
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Backend returns the wrapped backend.
func (e *Engine) Backend() Backend {
	return e.backend
}

// Score checks the vector's schema against the backend, predicts, calibrates,
// and attaches dimension labels and confidence weights. Every returned value
// lies in [0,1].
func (e *Engine) Score(ctx context.Context, clip feature.ClipVector) ([]model.SubScore, error) {
	if clip.SchemaVersion != e.backend.SchemaVersion() {
		return nil, fmt.Errorf("%w: clip %q, backend %q expects %q",
			ErrSchemaMismatch, clip.SchemaVersion, e.backend.Name(), e.backend.SchemaVersion())
	}

	raw, err := e.backend.Predict(ctx, clip)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendFailure, e.backend.Name(), err)
	}
	if len(raw) != len(dimensions) {
		return nil, fmt.Errorf("%w: %s returned %d values, want %d",
			ErrBackendFailure, e.backend.Name(), len(raw), len(dimensions))
	}

	calibrated := e.backend.Calibrate(raw)
	if len(calibrated) != len(dimensions) {
		return nil, fmt.Errorf("%w: %s calibrated %d values, want %d",
			ErrBackendFailure, e.backend.Name(), len(calibrated), len(dimensions))
	}

	scores := make([]model.SubScore, len(dimensions))
	for i, dim := range dimensions {
		v := calibrated[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		scores[i] = model.SubScore{
			Dimension:  dim,
			Value:      v,
			Confidence: e.confidences[dim],
		}
	}
	return scores, nil
}

// Registry holds named backends so the active one can be selected by config.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend under its own name, replacing any previous entry.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
