package scoring

import (
	"context"
	"math"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/feature"
)

// HeuristicName is the default backend selected when config names no other.
const HeuristicName = "heuristic-v1"

// Scorecard thresholds. Raw scores accumulate on a 0-100 scale per dimension
// before sigmoid calibration.
const (
	// Natural speech varies pitch; synthesized voices tend toward monotone.
	robotPitchStdHz   = 15.0
	robotPitchPoints  = 40
	cleanFlatness     = 0.005
	cleanPoints       = 30
	erraticPitchHz    = 500.0
	erraticPoints     = 20
	vocoderPhaseLevel = 0.5
	vocoderPoints     = 25
	noJitterVariance  = 1.0
	noJitterPoints    = 15

	replayHNRFloor    = 8.0
	replayHNRPoints   = 35
	replayNoiseLevel  = 0.5
	replayNoisePoints = 25
	replayTiltLevel   = -1.0
	replayTiltPoints  = 20

	channelZCRLevel      = 0.35
	channelZCRPoints     = 30
	channelLowBandFloor  = -8.0
	channelLowBandPoints = 30
	channelNoisyP90      = 0.6
	channelNoisyPoints   = 20

	rawScoreCap = 100.0

	// Sigmoid calibration: midpoint in raw points and slope.
	calibrationMidpoint = 50.0
	calibrationSlope    = 12.0
)

// Heuristic is a rule-based scorecard backend. It needs no training data and
// serves as the default until a learned model is plugged in.
type Heuristic struct{}

// NewHeuristic creates the default scorecard backend.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name implements Backend.
func (h *Heuristic) Name() string { return HeuristicName }

// SchemaVersion implements Backend.
func (h *Heuristic) SchemaVersion() string { return feature.SchemaVersion }

// Predict accumulates scorecard points per dimension from clip-level
// statistics. Deterministic: no randomness, no external calls.
func (h *Heuristic) Predict(_ context.Context, clip feature.ClipVector) ([]float64, error) {
	var synthesis, replay, channel float64

	// Synthesis cues: monotone pitch, implausibly clean spectrum, erratic
	// pitch jumps, vocoder phase artifacts, missing micro-jitter.
	if clip.At("f0_std") < robotPitchStdHz {
		synthesis += robotPitchPoints
	}
	if clip.At("flatness_mean") < cleanFlatness {
		synthesis += cleanPoints
	}
	if clip.At("f0_p90")-clip.At("f0_p10") > erraticPitchHz {
		synthesis += erraticPoints
	}
	if clip.At("phase_anomaly_mean") > vocoderPhaseLevel {
		synthesis += vocoderPoints
	}
	if clip.At("f0_diffvar") < noJitterVariance {
		synthesis += noJitterPoints
	}

	// Replay cues: playback channel degrades harmonicity, adds broadband
	// noise, and flattens the spectral tilt.
	if clip.At("hnr_mean") < replayHNRFloor {
		replay += replayHNRPoints
	}
	if clip.At("flatness_mean") > replayNoiseLevel {
		replay += replayNoisePoints
	}
	if clip.At("mel13_mean")-clip.At("mel01_mean") > replayTiltLevel {
		replay += replayTiltPoints
	}

	// Channel-mismatch cues: hiss, band-limited low end, noisy tail.
	if clip.At("zcr_mean") > channelZCRLevel {
		channel += channelZCRPoints
	}
	if clip.At("mel01_mean") < channelLowBandFloor {
		channel += channelLowBandPoints
	}
	if clip.At("flatness_p90") > channelNoisyP90 {
		channel += channelNoisyPoints
	}

	return []float64{
		math.Min(synthesis, rawScoreCap),
		math.Min(replay, rawScoreCap),
		math.Min(channel, rawScoreCap),
	}, nil
}

// Calibrate maps raw scorecard points onto [0,1] with a logistic curve
// centered at the midpoint.
func (h *Heuristic) Calibrate(raw []float64) []float64 {
	out := make([]float64, len(raw))
	for i, x := range raw {
		out[i] = 1 / (1 + math.Exp(-(x-calibrationMidpoint)/calibrationSlope))
	}
	return out
}
