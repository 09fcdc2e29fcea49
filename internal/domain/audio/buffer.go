// Package audio normalizes submitted audio bytes into a canonical mono
// PCM buffer the rest of the pipeline operates on.
package audio

import (
	"math"
	"time"
)

// Buffer holds canonical mono PCM: float64 amplitudes in [-1,1] at a fixed
// sample rate. It is created once by the Normalizer and never mutated
// downstream.
type Buffer struct {
	samples    []float64
	sampleRate int
}

// NewBuffer wraps samples at the given rate. The caller hands over ownership
// of the slice.
func NewBuffer(samples []float64, sampleRate int) *Buffer {
	return &Buffer{samples: samples, sampleRate: sampleRate}
}

// Samples returns the underlying sample slice. Callers must treat it as
// read-only; every downstream stage shares this single copy.
func (b *Buffer) Samples() []float64 {
	return b.samples
}

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Duration returns the buffer duration derived from length and rate.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.samples)) / float64(b.sampleRate) * float64(time.Second))
}

// Seconds returns the duration in seconds as a float.
func (b *Buffer) Seconds() float64 {
	if b.sampleRate <= 0 {
		return 0
	}
	return float64(len(b.samples)) / float64(b.sampleRate)
}

// RMS returns the root-mean-square energy of the whole buffer.
func (b *Buffer) RMS() float64 {
	if len(b.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(b.samples)))
}
