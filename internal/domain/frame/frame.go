// Package frame slices a normalized audio buffer into fixed-size,
// hop-advanced windows and tags each with a voicing class.
package frame

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/audio"
	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
)

// Voicing classifies a frame's content.
type Voicing int

const (
	// Silent frames fall below the clip's adaptive energy threshold.
	Silent Voicing = iota
	// Unvoiced frames carry energy but no periodic excitation.
	Unvoiced
	// Voiced frames carry periodic speech energy.
	Voiced
)

// String returns the voicing class name.
func (v Voicing) String() string {
	switch v {
	case Voiced:
		return "voiced"
	case Unvoiced:
		return "unvoiced"
	default:
		return "silent"
	}
}

// Frame is one fixed-size analysis window. Samples always has exactly the
// window length; the tail frame is zero-padded and PaddingRatio records the
// padded fraction.
type Frame struct {
	Index        int
	Start        int
	Samples      []float64
	PaddingRatio float64
	Voicing      Voicing
}

// Segmentation policy constants.
const (
	defaultWindowMS = 25
	defaultHopMS    = 10

	// absSilenceFloor is the frame RMS below which a frame is silent no
	// matter what the adaptive threshold says.
	absSilenceFloor = 1e-4

	// minEnergyModulation is the minimum coefficient of variation of frame
	// energy for a clip to contain voiced speech. Speech is amplitude
	// modulated at the syllable rate; steady tones and hum are not.
	minEnergyModulation = 0.05

	// minDynamicRange is the speech-to-noise percentile ratio above which
	// the adaptive silence threshold kicks in.
	minDynamicRange = 1.5
)

// Option applies a configuration option to the Segmenter.
type Option func(*Segmenter)

// WithWindowMS sets the analysis window length in milliseconds.
func WithWindowMS(ms int) Option {
	return func(s *Segmenter) {
		if ms > 0 {
			s.windowMS = ms
		}
	}
}

// WithHopMS sets the hop between consecutive windows in milliseconds.
func WithHopMS(ms int) Option {
	return func(s *Segmenter) {
		if ms > 0 {
			s.hopMS = ms
		}
	}
}

// Segmenter produces the complete ordered frame sequence for a buffer.
// Deterministic: the same buffer always yields the same frames.
type Segmenter struct {
	windowMS int
	hopMS    int
}

// NewSegmenter creates a Segmenter with configuration options.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{
		windowMS: defaultWindowMS,
		hopMS:    defaultHopMS,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Segment slices buf into hop-advanced windows covering every sample, then
// classifies each frame's voicing with thresholds adapted to this clip.
func (s *Segmenter) Segment(buf *audio.Buffer) ([]Frame, error) {
	if s.hopMS > s.windowMS {
		return nil, fmt.Errorf("%w: hop %dms exceeds window %dms", ErrInvalidFraming, s.hopMS, s.windowMS)
	}

	rate := buf.SampleRate()
	window := s.windowMS * rate / 1000
	hop := s.hopMS * rate / 1000
	if window <= 0 || hop <= 0 {
		return nil, fmt.Errorf("%w: window %dms hop %dms at %dHz", ErrInvalidFraming, s.windowMS, s.hopMS, rate)
	}

	samples := buf.Samples()
	frames := slice(samples, window, hop)
	classify(frames)

	metrics.RecordFramesSegmented(len(frames))
	return frames, nil
}

// slice cuts samples into frames of exactly window samples every hop samples.
// The tail frame is zero-padded so the final samples are still covered.
func slice(samples []float64, window, hop int) []Frame {
	n := len(samples)
	if n == 0 {
		return nil
	}

	var frames []Frame
	for start := 0; ; start += hop {
		end := start + window
		f := Frame{Index: len(frames), Start: start, Samples: make([]float64, window)}
		if end <= n {
			copy(f.Samples, samples[start:end])
		} else {
			valid := copy(f.Samples, samples[start:])
			f.PaddingRatio = float64(window-valid) / float64(window)
		}
		frames = append(frames, f)
		if end >= n {
			break
		}
	}
	return frames
}

// classify tags every frame's voicing in place. The energy threshold adapts
// to the clip: the 20th percentile of frame RMS approximates the noise floor
// and the 80th the speech level. Non-silent frames split voiced/unvoiced on
// zero-crossing rate against the clip median, unless the clip's energy
// envelope is too steady to be speech at all.
func classify(frames []Frame) {
	if len(frames) == 0 {
		return
	}

	rms := make([]float64, len(frames))
	zcr := make([]float64, len(frames))
	for i := range frames {
		rms[i] = frameRMS(frames[i])
		zcr[i] = crossingRate(frames[i].Samples)
	}

	noise := quantile(rms, 0.20)
	speech := quantile(rms, 0.80)

	threshold := absSilenceFloor
	if speech > noise*minDynamicRange {
		if t := noise + 0.25*(speech-noise); t > threshold {
			threshold = t
		}
	}

	var active []int
	for i := range frames {
		if rms[i] < threshold {
			frames[i].Voicing = Silent
			continue
		}
		active = append(active, i)
	}
	if len(active) == 0 {
		return
	}

	activeRMS := make([]float64, len(active))
	activeZCR := make([]float64, len(active))
	for j, i := range active {
		activeRMS[j] = rms[i]
		activeZCR[j] = zcr[i]
	}

	mean, std := stat.MeanStdDev(activeRMS, nil)
	if mean > 0 && !math.IsNaN(std) && std/mean < minEnergyModulation {
		// Steady energy envelope: a tone or hum, not speech.
		for _, i := range active {
			frames[i].Voicing = Unvoiced
		}
		return
	}

	zcrMedian := quantile(activeZCR, 0.50)
	for j, i := range active {
		if activeZCR[j] <= zcrMedian {
			frames[i].Voicing = Voiced
		} else {
			frames[i].Voicing = Unvoiced
		}
	}
}

// frameRMS ignores the zero-padded tail so padding does not dilute energy.
func frameRMS(f Frame) float64 {
	valid := int(math.Round(float64(len(f.Samples)) * (1 - f.PaddingRatio)))
	if valid <= 0 {
		return 0
	}
	var sum float64
	for _, s := range f.Samples[:valid] {
		sum += s * s
	}
	return math.Sqrt(sum / float64(valid))
}

// crossingRate returns the fraction of adjacent sample pairs that change sign.
func crossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// quantile returns the p-quantile of values without mutating the input.
func quantile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
