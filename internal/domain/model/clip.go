// Package model contains domain models passed between layers.
package model

import "time"

// Format describes the declared encoding of submitted audio bytes.
// Fields mirror the API schema for /v1/analyze.
type Format struct {
	Codec      string // "wav" or "pcm_s16le"
	SampleRate int    // Hz, required for raw PCM, informational for containers
	BitDepth   int    // bits per sample
	Channels   int    // 1 = mono, 2 = stereo
}

// Overrides carries optional per-request configuration. Zero values mean
// "use the service default".
type Overrides struct {
	WindowMS           int
	HopMS              int
	GenuineThreshold   float64
	SyntheticThreshold float64
	Backend            string
}

// Job is a queued analysis request flowing through the mq adapters.
type Job struct {
	JobID       string // unique id, also used for result lookup
	Audio       []byte // raw encoded audio bytes
	Format      Format
	Overrides   *Overrides
	SubmittedAt time.Time
}

// Dimension labels for detection sub-scores.
const (
	DimSynthesis       = "synthesis"
	DimReplay          = "replay"
	DimChannelMismatch = "channel-mismatch"
)

// SubScore is one detection dimension's calibrated output.
// Value is a spoof likelihood in [0,1]; higher means more suspicious.
type SubScore struct {
	Dimension  string  `json:"dimension"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Label is the categorical verdict for a clip.
type Label string

// Verdict labels.
const (
	LabelGenuine      Label = "genuine"
	LabelSuspicious   Label = "suspicious"
	LabelSynthetic    Label = "synthetic"
	LabelInsufficient Label = "insufficient-evidence"
)

// Reason codes attached to insufficient-evidence verdicts.
const (
	ReasonPadding          = "padding"
	ReasonDegenerateFrames = "degenerate-frames"
	ReasonNoVoicedContent  = "no-voiced-content"
)

// Verdict is the terminal output of the analysis pipeline. It is never
// mutated after the decision stage produces it.
type Verdict struct {
	AuthenticityScore float64    `json:"authenticity_score"`
	Label             Label      `json:"label"`
	SubScores         []SubScore `json:"sub_scores"`
	ReasonCode        string     `json:"reason_code,omitempty"`
	RiskLevel         string     `json:"risk_level"`
	Explanation       string     `json:"explanation"`
	Backend           string     `json:"backend"`
	SchemaVersion     string     `json:"schema_version"`
}
