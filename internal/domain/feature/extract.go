// Package feature computes per-frame acoustic features and aggregates them
// into the fixed clip-level vector consumed by scoring backends.
package feature

import (
	"context"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/frame"
	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
)

const (
	melBands = 13
	melLowHz = 60.0

	// F0 search range for human speech.
	pitchMinHz = 50.0
	pitchMaxHz = 400.0

	// Minimum normalized autocorrelation peak to accept a pitch estimate.
	pitchPeakFloor = 0.25

	// A submultiple lag this close to the global peak wins; the global
	// maximum often sits at twice or three times the true period.
	octaveTolerance = 0.87

	// Median filter width for the cross-frame pitch track.
	pitchMedianWidth = 5

	powerEpsilon = 1e-10
)

// pitchIndex is the position of f0 in the frame vector.
var pitchIndex = func() int {
	for i, n := range frameFeatureNames {
		if n == "f0" {
			return i
		}
	}
	return -1
}()

// Extractor turns frames into feature vectors. Stateless and deterministic;
// identical frames always yield identical vectors.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes one FrameVector per input frame. Degenerate values
// (NaN/Inf) are sanitized to 0 and the frame is flagged rather than aborting
// the clip.
func (e *Extractor) Extract(ctx context.Context, frames []frame.Frame, rate int) ([]FrameVector, error) {
	if len(frames) == 0 {
		return nil, nil
	}

	window := len(frames[0].Samples)
	fft := fourier.NewFFT(window)
	hann := hannWindow(window)
	bank := melFilterbank(melBands, window/2+1, rate)

	vectors := make([]FrameVector, 0, len(frames))
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors = append(vectors, e.extractFrame(f, rate, fft, hann, bank))
	}
	smoothPitchTrack(vectors)
	return vectors, nil
}

// smoothPitchTrack replaces each voiced frame's F0 estimate with the median
// of its neighbors on the voiced track. Per-frame autocorrelation still locks
// onto a period multiple now and then; a single bad frame would otherwise
// dominate the clip-level pitch variance.
func smoothPitchTrack(vectors []FrameVector) {
	if pitchIndex < 0 {
		return
	}
	track := make([]float64, 0, len(vectors))
	pos := make([]int, 0, len(vectors))
	for i, v := range vectors {
		if v.Voiced && pitchIndex < len(v.Values) && v.Values[pitchIndex] > 0 {
			track = append(track, v.Values[pitchIndex])
			pos = append(pos, i)
		}
	}
	if len(track) < pitchMedianWidth {
		return
	}

	half := pitchMedianWidth / 2
	window := make([]float64, 0, pitchMedianWidth)
	smoothed := make([]float64, len(track))
	for i := range track {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > len(track)-1 {
			hi = len(track) - 1
		}
		window = append(window[:0], track[lo:hi+1]...)
		sort.Float64s(window)
		smoothed[i] = window[len(window)/2]
	}
	for i, p := range pos {
		vectors[p].Values[pitchIndex] = smoothed[i]
	}
}

func (e *Extractor) extractFrame(f frame.Frame, rate int, fft *fourier.FFT, hann []float64, bank [][]float64) FrameVector {
	windowed := make([]float64, len(f.Samples))
	for i, s := range f.Samples {
		windowed[i] = s * hann[i]
	}

	coeffs := fft.Coefficients(nil, windowed)
	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		power[i] = real(c)*real(c) + imag(c)*imag(c)
	}

	values := make([]float64, 0, FrameFeatureCount)
	values = append(values, melEnvelope(power, bank)...)

	voiced := f.Voicing == frame.Voiced
	var f0, hnr float64
	if voiced {
		var peak float64
		f0, peak = pitchAutocorr(f.Samples, rate)
		if f0 > 0 {
			hnr = harmonicRatio(peak)
		}
	}
	values = append(values, f0)
	values = append(values, spectralFlatness(power))
	values = append(values, hnr)
	values = append(values, phaseAnomaly(coeffs))
	values = append(values, crossingRate(f.Samples))
	values = append(values, rms(f.Samples))

	v := FrameVector{SchemaVersion: SchemaVersion, Values: values, Voiced: voiced}
	for i, x := range v.Values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v.Values[i] = 0
			v.Degenerate = true
		}
	}
	if v.Degenerate {
		metrics.RecordDegenerateFrame()
	}
	return v
}

// Aggregate summarizes voiced frame vectors into the clip-level vector:
// mean, stddev, 10th/50th/90th percentiles, and first-difference variance
// per feature dimension. Silent and unvoiced frames carry no speaker
// evidence and are excluded.
func (e *Extractor) Aggregate(vectors []FrameVector) (ClipVector, error) {
	var voiced []FrameVector
	for _, v := range vectors {
		if v.Voiced && len(v.Values) == FrameFeatureCount {
			voiced = append(voiced, v)
		}
	}
	if len(voiced) == 0 {
		return ClipVector{}, ErrNoVoicedContent
	}

	values := make([]float64, 0, FrameFeatureCount*len(aggregateStatNames))
	series := make([]float64, len(voiced))
	for dim := 0; dim < FrameFeatureCount; dim++ {
		for i, v := range voiced {
			series[i] = v.Values[dim]
		}
		values = append(values, summarize(series)...)
	}

	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			values[i] = 0
		}
	}

	return ClipVector{
		SchemaVersion: SchemaVersion,
		Values:        values,
		VoicedFrames:  len(voiced),
		TotalFrames:   len(vectors),
	}, nil
}

// DegenerateRatio returns the fraction of vectors flagged degenerate.
func DegenerateRatio(vectors []FrameVector) float64 {
	if len(vectors) == 0 {
		return 0
	}
	var n int
	for _, v := range vectors {
		if v.Degenerate {
			n++
		}
	}
	return float64(n) / float64(len(vectors))
}

// VoicedRatio returns the fraction of vectors tagged voiced.
func VoicedRatio(vectors []FrameVector) float64 {
	if len(vectors) == 0 {
		return 0
	}
	var n int
	for _, v := range vectors {
		if v.Voiced {
			n++
		}
	}
	return float64(n) / float64(len(vectors))
}

// summarize computes the per-dimension statistics in aggregateStatNames order.
func summarize(series []float64) []float64 {
	mean, std := stat.MeanStdDev(series, nil)
	if math.IsNaN(std) {
		std = 0
	}

	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	p10 := stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 := stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 := stat.Quantile(0.90, stat.Empirical, sorted, nil)

	var diffvar float64
	if len(series) > 2 {
		diffs := make([]float64, len(series)-1)
		for i := 1; i < len(series); i++ {
			diffs[i-1] = series[i] - series[i-1]
		}
		diffvar = stat.Variance(diffs, nil)
		if math.IsNaN(diffvar) {
			diffvar = 0
		}
	}

	return []float64{mean, std, p10, p50, p90, diffvar}
}

// hannWindow returns the n-point Hann taper.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// melFilterbank builds triangular filters spaced evenly on the mel scale
// between melLowHz and the Nyquist frequency.
func melFilterbank(bands, bins, rate int) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	nyquist := float64(rate) / 2
	melLow := hzToMel(melLowHz)
	melHigh := hzToMel(nyquist)

	centers := make([]float64, bands+2)
	for i := range centers {
		mel := melLow + (melHigh-melLow)*float64(i)/float64(bands+1)
		centers[i] = melToHz(mel) / nyquist * float64(bins-1)
	}

	bank := make([][]float64, bands)
	for b := 0; b < bands; b++ {
		filter := make([]float64, bins)
		lo, mid, hi := centers[b], centers[b+1], centers[b+2]
		for k := 0; k < bins; k++ {
			x := float64(k)
			switch {
			case x > lo && x <= mid && mid > lo:
				filter[k] = (x - lo) / (mid - lo)
			case x > mid && x < hi && hi > mid:
				filter[k] = (hi - x) / (hi - mid)
			}
		}
		bank[b] = filter
	}
	return bank
}

// melEnvelope returns the log energy under each mel filter.
func melEnvelope(power []float64, bank [][]float64) []float64 {
	out := make([]float64, len(bank))
	for b, filter := range bank {
		var sum float64
		for k, w := range filter {
			if w > 0 && k < len(power) {
				sum += w * power[k]
			}
		}
		out[b] = math.Log(sum + powerEpsilon)
	}
	return out
}

// spectralFlatness is the Wiener entropy of the power spectrum: the ratio of
// geometric to arithmetic mean. Near 1 for noise, near 0 for tonal signals.
func spectralFlatness(power []float64) float64 {
	// Skip DC.
	spec := power[1:]
	if len(spec) == 0 {
		return 0
	}
	var logSum, sum float64
	for _, p := range spec {
		logSum += math.Log(p + powerEpsilon)
		sum += p + powerEpsilon
	}
	geo := math.Exp(logSum / float64(len(spec)))
	arith := sum / float64(len(spec))
	return geo / arith
}

// pitchAutocorr estimates F0 from the normalized autocorrelation within the
// speech pitch range. Integer lags quantize pitch in ~2 Hz steps at 16 kHz
// and the global peak can land on a period multiple, so the best lag is
// pulled back to the shortest near-equal submultiple and refined by
// parabolic interpolation before conversion to Hz. Returns (0, peak) when no
// credible peak exists.
func pitchAutocorr(samples []float64, rate int) (float64, float64) {
	minLag := int(float64(rate) / pitchMaxHz)
	maxLag := int(float64(rate) / pitchMinHz)
	if maxLag >= len(samples) {
		maxLag = len(samples) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, 0
	}

	var energy float64
	for _, s := range samples {
		energy += s * s
	}
	if energy == 0 {
		return 0, 0
	}

	corr := make([]float64, maxLag-minLag+1)
	bestLag, bestR := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < len(samples); i++ {
			sum += samples[i] * samples[i+lag]
		}
		r := sum / energy
		corr[lag-minLag] = r
		if r > bestR {
			bestR = r
			bestLag = lag
		}
	}
	if bestR < pitchPeakFloor || bestLag == 0 {
		return 0, bestR
	}

	for div := 4; div >= 2; div-- {
		cand := strongestNear(corr, minLag, bestLag/div)
		if cand >= minLag && corr[cand-minLag] >= octaveTolerance*bestR {
			bestLag = cand
			bestR = corr[cand-minLag]
			break
		}
	}

	lag := float64(bestLag) + peakOffset(corr, bestLag-minLag)
	return float64(rate) / lag, bestR
}

// strongestNear returns the lag with the highest correlation within two lags
// of center, or -1 when the neighborhood is out of range.
func strongestNear(corr []float64, minLag, center int) int {
	best, bestR := -1, math.Inf(-1)
	for lag := center - 2; lag <= center+2; lag++ {
		i := lag - minLag
		if i < 0 || i >= len(corr) {
			continue
		}
		if corr[i] > bestR {
			bestR = corr[i]
			best = lag
		}
	}
	return best
}

// peakOffset fits a parabola through an integer peak and its neighbors,
// giving sub-sample lag precision.
func peakOffset(corr []float64, i int) float64 {
	if i <= 0 || i >= len(corr)-1 {
		return 0
	}
	denom := corr[i-1] - 2*corr[i] + corr[i+1]
	if denom >= 0 {
		return 0
	}
	off := 0.5 * (corr[i-1] - corr[i+1]) / denom
	if off < -0.5 || off > 0.5 {
		return 0
	}
	return off
}

// harmonicRatio converts an autocorrelation peak into a dB harmonic-to-noise
// ratio, clamped to a sane speech range.
func harmonicRatio(peak float64) float64 {
	if peak >= 1 {
		return 40
	}
	if peak <= 0 {
		return 0
	}
	hnr := 10 * math.Log10(peak/(1-peak))
	if hnr < 0 {
		return 0
	}
	if hnr > 40 {
		return 40
	}
	return hnr
}

// phaseAnomaly measures how far cross-bin phase progression deviates from
// linearity. Natural speech keeps phase locally coherent across bins;
// vocoders that discard phase leave erratic second-order differences in the
// high-energy region.
func phaseAnomaly(coeffs []complex128) float64 {
	if len(coeffs) < 3 {
		return 0
	}

	phases := make([]float64, len(coeffs))
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		phases[i] = cmplx.Phase(c)
		mags[i] = cmplx.Abs(c)
	}

	var weighted, totalWeight float64
	for k := 1; k < len(coeffs)-1; k++ {
		d2 := wrapPhase(phases[k+1] - 2*phases[k] + phases[k-1])
		w := mags[k]
		weighted += w * math.Abs(d2) / math.Pi
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

// wrapPhase maps an angle to (-pi, pi].
func wrapPhase(x float64) float64 {
	for x > math.Pi {
		x -= 2 * math.Pi
	}
	for x <= -math.Pi {
		x += 2 * math.Pi
	}
	return x
}

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

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
