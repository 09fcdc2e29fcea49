package feature_test

import (
	"context"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/audio"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/feature"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/frame"
)

const testRate = 16_000

// speechLike generates a harmonic tone with vibrato and syllable-rate
// amplitude modulation, enough structure to pass voicing classification.
func speechLike(f0 float64, seconds float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testRate
		pitch := f0 * (1 + 0.03*math.Sin(2*math.Pi*5*t))
		env := 0.55 + 0.45*math.Sin(2*math.Pi*4*t)
		s := 0.6*math.Sin(2*math.Pi*pitch*t) +
			0.3*math.Sin(2*math.Pi*2*pitch*t) +
			0.1*math.Sin(2*math.Pi*3*pitch*t)
		out[i] = 0.5 * env * s
	}
	return out
}

func voicedFrames(t *testing.T, samples []float64) []frame.Frame {
	t.Helper()
	s := frame.NewSegmenter()
	frames, err := s.Segment(audio.NewBuffer(samples, testRate))
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	return frames
}

func TestExtractor(t *testing.T) {
	ctx := context.Background()

	Convey("Given a speech-like harmonic clip", t, func() {
		e := feature.NewExtractor()
		frames := voicedFrames(t, speechLike(180, 1.0))

		Convey("When extracting frame vectors", func() {
			vectors, err := e.Extract(ctx, frames, testRate)

			Convey("Then every frame should yield a schema-tagged vector", func() {
				So(err, ShouldBeNil)
				So(len(vectors), ShouldEqual, len(frames))
				for _, v := range vectors {
					So(v.SchemaVersion, ShouldEqual, feature.SchemaVersion)
					So(len(v.Values), ShouldEqual, feature.FrameFeatureCount)
				}
			})

			Convey("Then no value should be NaN or Inf", func() {
				So(err, ShouldBeNil)
				for _, v := range vectors {
					for _, x := range v.Values {
						So(math.IsNaN(x), ShouldBeFalse)
						So(math.IsInf(x, 0), ShouldBeFalse)
					}
				}
			})

			Convey("Then voiced frames should carry a pitch near the fundamental", func() {
				So(err, ShouldBeNil)
				names := feature.FrameFeatureNames()
				f0Idx := -1
				for i, n := range names {
					if n == "f0" {
						f0Idx = i
					}
				}
				So(f0Idx, ShouldBeGreaterThanOrEqualTo, 0)

				var voiced, nearPitch int
				for _, v := range vectors {
					if !v.Voiced {
						continue
					}
					voiced++
					if f := v.Values[f0Idx]; f > 140 && f < 230 {
						nearPitch++
					}
				}
				So(voiced, ShouldBeGreaterThan, 0)
				So(nearPitch, ShouldBeGreaterThan, voiced/2)
			})
		})

		Convey("When extracting a near-monotone clip", func() {
			// 0.5% vibrato keeps the true pitch within a hertz of 180; any
			// larger spread in the estimates is estimator noise.
			flat := voicedFrames(t, func() []float64 {
				n := int(1.0 * testRate)
				out := make([]float64, n)
				for i := range out {
					ts := float64(i) / testRate
					pitch := 180 * (1 + 0.005*math.Sin(2*math.Pi*5*ts))
					env := 0.55 + 0.45*math.Sin(2*math.Pi*4*ts)
					out[i] = 0.5 * env * (0.6*math.Sin(2*math.Pi*pitch*ts) + 0.3*math.Sin(2*math.Pi*2*pitch*ts))
				}
				return out
			}())
			vectors, err := e.Extract(ctx, flat, testRate)

			Convey("Then the voiced pitch track should be tight around the fundamental", func() {
				So(err, ShouldBeNil)
				f0Idx := -1
				for i, n := range feature.FrameFeatureNames() {
					if n == "f0" {
						f0Idx = i
					}
				}

				var track []float64
				for _, v := range vectors {
					if v.Voiced && v.Values[f0Idx] > 0 {
						track = append(track, v.Values[f0Idx])
					}
				}
				So(len(track), ShouldBeGreaterThan, 0)

				var mean float64
				for _, f := range track {
					mean += f
				}
				mean /= float64(len(track))
				var variance float64
				for _, f := range track {
					variance += (f - mean) * (f - mean)
				}
				std := math.Sqrt(variance / float64(len(track)))

				So(mean, ShouldBeBetween, 170, 190)
				So(std, ShouldBeLessThan, 10)
			})
		})

		Convey("When extracting the same frames twice", func() {
			a, errA := e.Extract(ctx, frames, testRate)
			b, errB := e.Extract(ctx, frames, testRate)

			Convey("Then the vectors should be identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When aggregating the extracted vectors", func() {
			vectors, err := e.Extract(ctx, frames, testRate)
			So(err, ShouldBeNil)
			clip, err := e.Aggregate(vectors)

			Convey("Then the clip vector should cover every feature-statistic pair", func() {
				So(err, ShouldBeNil)
				So(clip.SchemaVersion, ShouldEqual, feature.SchemaVersion)
				So(len(clip.Values), ShouldEqual, len(feature.ClipFeatureNames()))
				So(clip.VoicedFrames, ShouldBeGreaterThan, 0)
				So(clip.TotalFrames, ShouldEqual, len(vectors))
			})

			Convey("Then unvoiced frames should not leak into the summary", func() {
				So(err, ShouldBeNil)

				// Removing every non-voiced vector must not change the result.
				var voicedOnly []feature.FrameVector
				for _, v := range vectors {
					if v.Voiced {
						voicedOnly = append(voicedOnly, v)
					}
				}
				again, err := e.Aggregate(voicedOnly)
				So(err, ShouldBeNil)
				So(again.Values, ShouldResemble, clip.Values)
			})

			Convey("Then named lookup should return in-range values", func() {
				So(err, ShouldBeNil)
				So(clip.At("f0_mean"), ShouldBeGreaterThan, 100)
				So(clip.At("flatness_mean"), ShouldBeBetweenOrEqual, 0, 1)
				So(clip.Index("no_such_feature"), ShouldEqual, -1)
			})
		})
	})

	Convey("Given a clip with no voiced frames", t, func() {
		e := feature.NewExtractor()
		// A steady sine is classified unvoiced by the segmenter.
		n := int(1.0 * testRate)
		steady := make([]float64, n)
		for i := range steady {
			steady[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate)
		}
		frames := voicedFrames(t, steady)

		Convey("When aggregating its vectors", func() {
			vectors, err := e.Extract(ctx, frames, testRate)
			So(err, ShouldBeNil)
			_, err = e.Aggregate(vectors)

			Convey("Then it should fail with ErrNoVoicedContent", func() {
				So(err, ShouldWrap, feature.ErrNoVoicedContent)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		e := feature.NewExtractor()
		frames := voicedFrames(t, speechLike(180, 1.0))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		Convey("When extracting", func() {
			_, err := e.Extract(cancelled, frames, testRate)

			Convey("Then extraction should stop with the context error", func() {
				So(err, ShouldWrap, context.Canceled)
			})
		})
	})
}
