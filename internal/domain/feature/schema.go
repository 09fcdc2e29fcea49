package feature

import (
	"fmt"
	"sync"
)

// SchemaVersion identifies the feature layout produced by this package.
// Scoring backends declare the schema they were trained against and the
// engine refuses mismatches rather than coercing them.
const SchemaVersion = "v1"

// Per-frame feature names in vector order.
var frameFeatureNames = []string{
	"mel01", "mel02", "mel03", "mel04", "mel05", "mel06", "mel07",
	"mel08", "mel09", "mel10", "mel11", "mel12", "mel13",
	"f0",
	"flatness",
	"hnr",
	"phase_anomaly",
	"zcr",
	"rms",
}

// Aggregation statistic names, applied per feature dimension in this order.
var aggregateStatNames = []string{"mean", "std", "p10", "p50", "p90", "diffvar"}

// FrameFeatureCount is the length of every frame vector.
const FrameFeatureCount = 19

// FrameFeatureNames returns the ordered per-frame feature names.
func FrameFeatureNames() []string {
	return append([]string(nil), frameFeatureNames...)
}

// ClipFeatureNames returns the ordered clip-level feature names, one entry
// per (frame feature, statistic) pair.
func ClipFeatureNames() []string {
	names := make([]string, 0, len(frameFeatureNames)*len(aggregateStatNames))
	for _, f := range frameFeatureNames {
		for _, s := range aggregateStatNames {
			names = append(names, fmt.Sprintf("%s_%s", f, s))
		}
	}
	return names
}

// FrameVector holds one frame's features plus the flags aggregation needs.
type FrameVector struct {
	SchemaVersion string
	Values        []float64
	Voiced        bool
	Degenerate    bool
}

// ClipVector is the fixed-length clip-level summary handed to scoring.
type ClipVector struct {
	SchemaVersion string
	Values        []float64
	VoicedFrames  int
	TotalFrames   int
}

var (
	clipIndexOnce sync.Once
	clipIndex     map[string]int
)

// Index returns the position of a named clip feature, or -1 if unknown.
func (v ClipVector) Index(name string) int {
	clipIndexOnce.Do(func() {
		clipIndex = make(map[string]int)
		for i, n := range ClipFeatureNames() {
			clipIndex[n] = i
		}
	})
	i, ok := clipIndex[name]
	if !ok {
		return -1
	}
	return i
}

// At returns the named clip feature value, or 0 if the name is unknown.
func (v ClipVector) At(name string) float64 {
	i := v.Index(name)
	if i < 0 || i >= len(v.Values) {
		return 0
	}
	return v.Values[i]
}
