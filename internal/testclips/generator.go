package testclips

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
)

// Sample rate of generated clips.
const clipSampleRate = 16_000

// Clip kind names.
const (
	kindNatural = "natural"
	kindVocoder = "vocoder"
	kindTone    = "tone"
	kindNoisy   = "noisy"
	kindQuiet   = "quiet"
)

// kindCycle fixes the mix of generated clips. Natural voices dominate the
// way they would in live traffic, with synthetic and edge-case clips mixed in.
var kindCycle = []string{
	kindNatural, kindNatural, kindNatural, kindNatural,
	kindVocoder, kindVocoder,
	kindNoisy,
	kindTone,
	kindNatural,
	kindQuiet,
}

// generateClips creates the specified number of clips with deterministic seeds.
func generateClips(ctx context.Context, config *Config, stats *Stats) ([]Clip, error) {
	logger.Get().Info(ctx, "generating clips", logger.Int("numClips", config.NumClips))

	clips := make([]Clip, config.NumClips)

	type clipResult struct {
		index int
		clip  Clip
		err   error
	}

	resultChan := make(chan clipResult, config.NumClips)

	// Use worker pool for clip generation
	workerCount := minInt(config.Workers, config.NumClips)
	clipsPerWorker := config.NumClips / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * clipsPerWorker
		end := start + clipsPerWorker
		if worker == workerCount-1 {
			end = config.NumClips // Last worker gets remaining clips
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- clipResult{index: i, err: ctx.Err()}
					return
				default:
					clip := generateSingleClip(i, config.Seconds)
					resultChan <- clipResult{index: i, clip: clip, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumClips; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during clip generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate clip %d: %w", result.index, result.err)
			}
			clips[result.index] = result.clip
		}
	}

	stats.ClipsGenerated = len(clips)
	logger.Get().Info(ctx, "generated clips successfully", logger.Int("count", len(clips)))

	return clips, nil
}

// generateSingleClip creates one clip. The seed makes re-runs reproducible.
func generateSingleClip(index int, seconds float64) Clip {
	kind := kindCycle[index%len(kindCycle)]
	seed := int64(index + 1)

	samples := synthesize(kind, seed, seconds)

	return Clip{
		Kind:       kind,
		Audio:      base64.StdEncoding.EncodeToString(encodePCM16(samples)),
		SampleRate: clipSampleRate,
		Seed:       seed,
	}
}

// synthesize renders the waveform for one clip kind.
func synthesize(kind string, seed int64, seconds float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	n := int(seconds * clipSampleRate)
	samples := make([]float64, n)

	base := 140 + rng.Float64()*80 // per-speaker pitch

	for i := range samples {
		t := float64(i) / clipSampleRate
		switch kind {
		case kindTone:
			samples[i] = 0.5 * math.Sin(2*math.Pi*base*2*t)
		case kindVocoder:
			pitch := base * (1 + 0.005*math.Sin(2*math.Pi*5*t))
			env := 0.55 + 0.45*math.Sin(2*math.Pi*4*t)
			s := 0.6*math.Sin(2*math.Pi*pitch*t) + 0.3*math.Sin(2*math.Pi*2*pitch*t)
			samples[i] = 0.5 * env * s
		case kindNoisy:
			pitch := base * (1 + 0.2*math.Sin(2*math.Pi*0.8*t))
			env := 0.5 + 0.4*math.Sin(2*math.Pi*3*t)
			s := 0.5 * math.Sin(2*math.Pi*pitch*t)
			samples[i] = 0.4*env*s + 0.2*(rng.Float64()*2-1)
		case kindQuiet:
			pitch := base * (1 + 0.15*math.Sin(2*math.Pi*0.9*t))
			env := 0.5 + 0.4*math.Sin(2*math.Pi*2.7*t)
			samples[i] = 0.05 * env * math.Sin(2*math.Pi*pitch*t)
		default: // natural
			pitch := base * (1 + 0.2*math.Sin(2*math.Pi*0.7*t) + 0.04*math.Sin(2*math.Pi*5.7*t))
			env := 0.5 + 0.4*math.Sin(2*math.Pi*3.1*t) + 0.1*math.Sin(2*math.Pi*1.1*t)
			s := 0.5*math.Sin(2*math.Pi*pitch*t) + 0.25*math.Sin(2*math.Pi*2*pitch*t)
			samples[i] = 0.5*env*s + 0.04*(rng.Float64()*2-1)
		}
	}

	return samples
}

// encodePCM16 packs samples into little-endian signed 16-bit PCM.
func encodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
