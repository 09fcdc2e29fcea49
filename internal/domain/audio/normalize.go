package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
)

// Default normalization policy constants.
const (
	defaultTargetSampleRate = 16_000
	defaultMinClipSeconds   = 0.5
	defaultMaxClipSeconds   = 30.0
	defaultSilenceRMSFloor  = 0.001
	trimThresholdDB         = 20.0 // trim edges quieter than peak-20dB
	trimFrameSamples        = 256
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithTargetSampleRate sets the canonical sample rate.
func WithTargetSampleRate(rate int) Option {
	return func(n *Normalizer) {
		if rate > 0 {
			n.targetRate = rate
		}
	}
}

// WithDurationBounds sets the accepted clip duration range in seconds.
func WithDurationBounds(minSec, maxSec float64) Option {
	return func(n *Normalizer) {
		if minSec > 0 && maxSec > minSec {
			n.minSeconds = minSec
			n.maxSeconds = maxSec
		}
	}
}

// WithSilenceRMSFloor sets the whole-buffer RMS below which a clip is
// rejected as near-total silence.
func WithSilenceRMSFloor(floor float64) Option {
	return func(n *Normalizer) {
		if floor > 0 {
			n.silenceFloor = floor
		}
	}
}

// Normalizer decodes and validates raw audio into a canonical Buffer.
// Purely deterministic: identical bytes and format always produce an
// identical buffer.
type Normalizer struct {
	targetRate   int
	minSeconds   float64
	maxSeconds   float64
	silenceFloor float64
}

// NewNormalizer creates a Normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		targetRate:   defaultTargetSampleRate,
		minSeconds:   defaultMinClipSeconds,
		maxSeconds:   defaultMaxClipSeconds,
		silenceFloor: defaultSilenceRMSFloor,
	}

	// Apply all options
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// TargetSampleRate returns the canonical rate buffers are produced at.
func (n *Normalizer) TargetSampleRate() int {
	return n.targetRate
}

// Normalize decodes raw bytes per the declared format, downmixes to mono,
// trims leading/trailing silence, enforces duration and energy bounds, and
// resamples to the target rate.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte, f model.Format) (*Buffer, error) {
	samples, srcRate, err := decode(raw, f)
	if err != nil {
		return nil, err
	}

	samples = trimSilence(samples)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: clip is entirely silence", ErrInsufficientSignal)
	}

	seconds := float64(len(samples)) / float64(srcRate)
	if seconds < n.minSeconds {
		return nil, fmt.Errorf("%w: %.2fs after trimming, minimum %.2fs", ErrClipTooShort, seconds, n.minSeconds)
	}
	if seconds > n.maxSeconds {
		return nil, fmt.Errorf("%w: %.2fs, maximum %.2fs", ErrClipTooLong, seconds, n.maxSeconds)
	}

	if srcRate != n.targetRate {
		samples, err = resample(samples, srcRate, n.targetRate)
		if err != nil {
			return nil, fmt.Errorf("%w: resampling %dHz -> %dHz: %w", ErrUnsupportedFormat, srcRate, n.targetRate, err)
		}
	}

	buf := NewBuffer(samples, n.targetRate)
	if buf.RMS() < n.silenceFloor {
		return nil, fmt.Errorf("%w: whole-clip RMS %.6f below floor %.6f", ErrInsufficientSignal, buf.RMS(), n.silenceFloor)
	}
	return buf, nil
}

// decode turns raw bytes into mono float64 samples plus their source rate.
func decode(raw []byte, f model.Format) ([]float64, int, error) {
	switch strings.ToLower(f.Codec) {
	case "wav":
		return decodeWAV(raw)
	case "pcm_s16le", "pcm":
		return decodePCM16(raw, f)
	default:
		return nil, 0, fmt.Errorf("%w: codec %q", ErrUnsupportedFormat, f.Codec)
	}
}

// decodeWAV decodes a RIFF/WAVE container via go-audio.
func decodeWAV(raw []byte) ([]float64, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(raw))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, 0, fmt.Errorf("%w: malformed WAV header", ErrUnsupportedFormat)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << uint(bitDepth-1))

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / scale
		}
		samples[i] = clamp(sum/float64(channels), -1, 1)
	}
	return samples, buf.Format.SampleRate, nil
}

// decodePCM16 decodes headerless little-endian signed 16-bit PCM.
func decodePCM16(raw []byte, f model.Format) ([]float64, int, error) {
	if f.BitDepth != 16 {
		return nil, 0, fmt.Errorf("%w: raw PCM bit depth %d (only 16 supported)", ErrUnsupportedFormat, f.BitDepth)
	}
	if f.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: raw PCM requires a declared sample rate", ErrUnsupportedFormat)
	}
	channels := f.Channels
	if channels <= 0 {
		channels = 1
	}

	frameBytes := 2 * channels
	frames := len(raw) / frameBytes
	if frames == 0 {
		return nil, 0, fmt.Errorf("%w: empty PCM payload", ErrClipTooShort)
	}

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
			sum += float64(v) / 32768.0
		}
		samples[i] = clamp(sum/float64(channels), -1, 1)
	}
	return samples, f.SampleRate, nil
}

// resample converts samples between rates with a band-limited resampler.
func resample(samples []float64, srcRate, dstRate int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, err
	}
	out, err := rs.Process(samples)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// trimSilence removes leading and trailing frames quieter than peak-20dB,
// the usual conservative edge-trim for voicemail-style recordings.
func trimSilence(samples []float64) []float64 {
	if len(samples) == 0 {
		return samples
	}

	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return nil
	}
	threshold := peak * math.Pow(10, -trimThresholdDB/20)

	start := 0
	for start < len(samples) {
		end := start + trimFrameSamples
		if end > len(samples) {
			end = len(samples)
		}
		if frameRMS(samples[start:end]) >= threshold {
			break
		}
		start = end
	}

	stop := len(samples)
	for stop > start {
		begin := stop - trimFrameSamples
		if begin < start {
			begin = start
		}
		if frameRMS(samples[begin:stop]) >= threshold {
			break
		}
		stop = begin
	}

	return samples[start:stop]
}

func frameRMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
