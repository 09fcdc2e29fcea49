// Package decision fuses per-dimension sub-scores and clip quality metadata
// into the final verdict.
package decision

import (
	"fmt"
	"strings"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
)

// Default decision policy constants.
const (
	defaultGenuineThreshold   = 0.35
	defaultSyntheticThreshold = 0.65
	defaultMaxPaddingRatio    = 0.5
	defaultMaxDegenerateRatio = 0.5

	// Risk level boundaries on the fused score.
	mediumRiskFloor = 0.35
	highRiskFloor   = 0.65
)

// Default fusion weights per dimension.
var defaultWeights = map[string]float64{
	model.DimSynthesis:       1.0,
	model.DimReplay:          0.8,
	model.DimChannelMismatch: 0.6,
}

// Quality carries the clip-level quality metadata the gate inspects.
type Quality struct {
	PaddingRatio    float64
	DegenerateRatio float64
	VoicedRatio     float64
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithThresholds sets the genuine/synthetic score boundaries.
func WithThresholds(genuine, synthetic float64) Option {
	return func(a *Aggregator) {
		if genuine >= 0 && genuine < synthetic && synthetic <= 1 {
			a.genuineThreshold = genuine
			a.syntheticThreshold = synthetic
		}
	}
}

// WithQualityCaps sets the padding and degenerate-frame ratios above which a
// clip cannot be labeled at all.
func WithQualityCaps(maxPadding, maxDegenerate float64) Option {
	return func(a *Aggregator) {
		if maxPadding > 0 && maxPadding <= 1 {
			a.maxPaddingRatio = maxPadding
		}
		if maxDegenerate > 0 && maxDegenerate <= 1 {
			a.maxDegenerateRatio = maxDegenerate
		}
	}
}

// WithDimensionWeights overrides fusion weights per dimension.
func WithDimensionWeights(weights map[string]float64) Option {
	return func(a *Aggregator) {
		for dim, w := range weights {
			if w >= 0 && w <= 1 {
				a.weights[dim] = w
			}
		}
	}
}

// Aggregator maps sub-scores plus quality metadata to a Verdict. Pure and
// deterministic: no I/O, no clock, no randomness.
type Aggregator struct {
	genuineThreshold   float64
	syntheticThreshold float64
	maxPaddingRatio    float64
	maxDegenerateRatio float64
	weights            map[string]float64
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		genuineThreshold:   defaultGenuineThreshold,
		syntheticThreshold: defaultSyntheticThreshold,
		maxPaddingRatio:    defaultMaxPaddingRatio,
		maxDegenerateRatio: defaultMaxDegenerateRatio,
		weights:            make(map[string]float64, len(defaultWeights)),
	}
	for dim, w := range defaultWeights {
		a.weights[dim] = w
	}

	// Apply all options
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Decide fuses the sub-scores into one authenticity risk score, applies the
// quality gate, and labels the clip. The quality gate wins over any score:
// a clip the pipeline barely saw cannot be called genuine or synthetic.
func (a *Aggregator) Decide(scores []model.SubScore, quality Quality, backend, schemaVersion string) model.Verdict {
	fused, dominant := fuse(scores, a.weights)

	v := model.Verdict{
		AuthenticityScore: fused,
		SubScores:         scores,
		Backend:           backend,
		SchemaVersion:     schemaVersion,
		RiskLevel:         riskLevel(fused),
	}

	if reason := a.qualityReason(quality); reason != "" {
		v.Label = model.LabelInsufficient
		v.ReasonCode = reason
		v.RiskLevel = "low"
		v.Explanation = insufficientExplanation(reason, quality)
		return v
	}

	switch {
	case fused >= a.syntheticThreshold:
		v.Label = model.LabelSynthetic
	case fused <= a.genuineThreshold:
		v.Label = model.LabelGenuine
	default:
		v.Label = model.LabelSuspicious
	}
	v.Explanation = explanation(v.Label, fused, dominant)
	return v
}

// qualityReason returns the first tripped quality gate, or "".
func (a *Aggregator) qualityReason(q Quality) string {
	if q.PaddingRatio > a.maxPaddingRatio {
		return model.ReasonPadding
	}
	if q.DegenerateRatio > a.maxDegenerateRatio {
		return model.ReasonDegenerateFrames
	}
	return ""
}

// fuse computes max over dimensions of value*confidence*weight, clamped to
// [0,1], and reports which dimension produced the maximum. A single strongly
// suspicious dimension dominates; averaging would let clean dimensions mask
// a confident detection.
func fuse(scores []model.SubScore, weights map[string]float64) (float64, string) {
	var fused float64
	var dominant string
	for _, s := range scores {
		contribution := s.Value * s.Confidence * weights[s.Dimension]
		if contribution > fused {
			fused = contribution
			dominant = s.Dimension
		}
	}
	if fused < 0 {
		fused = 0
	}
	if fused > 1 {
		fused = 1
	}
	return fused, dominant
}

func riskLevel(score float64) string {
	switch {
	case score >= highRiskFloor:
		return "high"
	case score >= mediumRiskFloor:
		return "medium"
	default:
		return "low"
	}
}

func explanation(label model.Label, score float64, dominant string) string {
	switch label {
	case model.LabelGenuine:
		return fmt.Sprintf("no strong spoofing indicators (risk %.2f)", score)
	case model.LabelSynthetic:
		return fmt.Sprintf("strong %s indicators (risk %.2f)", dominantOr(dominant), score)
	default:
		return fmt.Sprintf("moderate %s indicators (risk %.2f); manual review recommended", dominantOr(dominant), score)
	}
}

func insufficientExplanation(reason string, q Quality) string {
	switch reason {
	case model.ReasonPadding:
		return fmt.Sprintf("too little signal to judge: %.0f%% of analysis windows are padding", q.PaddingRatio*100)
	case model.ReasonDegenerateFrames:
		return fmt.Sprintf("too little signal to judge: %.0f%% of frames produced degenerate features", q.DegenerateRatio*100)
	default:
		return "too little signal to judge"
	}
}

func dominantOr(dim string) string {
	if strings.TrimSpace(dim) == "" {
		return "spoofing"
	}
	return dim
}
