package pipeline_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/audio"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/pipeline"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/scoring"
	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const testRate = 16_000

func pcmFormat() model.Format {
	return model.Format{Codec: "pcm_s16le", SampleRate: testRate, BitDepth: 16, Channels: 1}
}

func encode(samples []float64) []byte {
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

// steadySine is a clean synthetic tone with no speech structure.
func steadySine(freq float64, seconds float64) []byte {
	n := int(seconds * testRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return encode(samples)
}

// vocoderLike is a harmonic voice with syllable-rate amplitude modulation but
// the telltale flat pitch and clean spectrum of cheap synthesis.
func vocoderLike(seconds float64) []byte {
	n := int(seconds * testRate)
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / testRate
		pitch := 180 * (1 + 0.005*math.Sin(2*math.Pi*5*t))
		env := 0.55 + 0.45*math.Sin(2*math.Pi*4*t)
		s := 0.6*math.Sin(2*math.Pi*pitch*t) + 0.3*math.Sin(2*math.Pi*2*pitch*t)
		samples[i] = 0.5 * env * s
	}
	return encode(samples)
}

// naturalLike adds pitch wander and broadband noise so the scorecard sees
// organic variation.
func naturalLike(seconds float64) []byte {
	rng := rand.New(rand.NewSource(7))
	n := int(seconds * testRate)
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / testRate
		pitch := 170 * (1 + 0.25*math.Sin(2*math.Pi*0.7*t) + 0.05*math.Sin(2*math.Pi*6.3*t))
		env := 0.5 + 0.4*math.Sin(2*math.Pi*3.1*t) + 0.1*math.Sin(2*math.Pi*0.9*t)
		s := 0.5*math.Sin(2*math.Pi*pitch*t) + 0.25*math.Sin(2*math.Pi*2*pitch*t)
		samples[i] = 0.5*env*s + 0.04*(rng.Float64()*2-1)
	}
	return encode(samples)
}

func TestPipeline_Analyze(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pipeline with default policy", t, func() {
		p := pipeline.New()

		Convey("When analyzing a 3-second clean sine tone", func() {
			verdict, err := p.Analyze(ctx, steadySine(440, 3), pcmFormat(), nil)

			Convey("Then the verdict should be insufficient-evidence", func() {
				So(err, ShouldBeNil)
				So(verdict.Label, ShouldEqual, model.LabelInsufficient)
				So(verdict.ReasonCode, ShouldEqual, model.ReasonNoVoicedContent)
			})
		})

		Convey("When analyzing a clip shorter than the minimum duration", func() {
			_, err := p.Analyze(ctx, steadySine(440, 0.3), pcmFormat(), nil)

			Convey("Then the normalize stage should reject it", func() {
				So(err, ShouldWrap, audio.ErrClipTooShort)

				var stageErr *pipeline.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Stage, ShouldEqual, pipeline.StageNormalize)
			})
		})

		Convey("When analyzing a vocoder-like harmonic clip", func() {
			verdict, err := p.Analyze(ctx, vocoderLike(2), pcmFormat(), nil)

			Convey("Then the clip should score as suspicious or synthetic", func() {
				So(err, ShouldBeNil)
				So(verdict.Label, ShouldBeIn, model.LabelSuspicious, model.LabelSynthetic)
				So(verdict.AuthenticityScore, ShouldBeGreaterThan, 0.35)
			})
		})

		Convey("When analyzing a natural-sounding clip", func() {
			verdict, err := p.Analyze(ctx, naturalLike(2), pcmFormat(), nil)

			Convey("Then the clip should not be labeled synthetic", func() {
				So(err, ShouldBeNil)
				So(verdict.Label, ShouldNotEqual, model.LabelSynthetic)
				So(verdict.AuthenticityScore, ShouldBeBetweenOrEqual, 0, 1)
			})
		})

		Convey("When analyzing the identical clip twice", func() {
			raw := vocoderLike(2)
			a, errA := p.Analyze(ctx, raw, pcmFormat(), nil)
			b, errB := p.Analyze(ctx, raw, pcmFormat(), nil)

			Convey("Then both verdicts should be identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the request names an unknown backend", func() {
			ov := &model.Overrides{Backend: "transformer-v9"}
			_, err := p.Analyze(ctx, vocoderLike(2), pcmFormat(), ov)

			Convey("Then the score stage should fail with ErrUnknownBackend", func() {
				So(err, ShouldWrap, scoring.ErrUnknownBackend)

				var stageErr *pipeline.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Stage, ShouldEqual, pipeline.StageScore)
			})
		})

		Convey("When the request overrides the framing", func() {
			ov := &model.Overrides{WindowMS: 50, HopMS: 25}
			verdict, err := p.Analyze(ctx, vocoderLike(2), pcmFormat(), ov)

			Convey("Then analysis should still complete", func() {
				So(err, ShouldBeNil)
				So(verdict.Label, ShouldNotBeEmpty)
			})
		})

		Convey("When the request tightens the thresholds", func() {
			ov := &model.Overrides{GenuineThreshold: 0.01, SyntheticThreshold: 0.05}
			verdict, err := p.Analyze(ctx, vocoderLike(2), pcmFormat(), ov)

			Convey("Then the stricter synthetic threshold should apply", func() {
				So(err, ShouldBeNil)
				So(verdict.Label, ShouldEqual, model.LabelSynthetic)
			})
		})
	})
}
