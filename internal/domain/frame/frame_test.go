package frame_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/audio"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/frame"
)

const testRate = 16_000

// tone generates amp*sin(2*pi*freq*t), optionally amplitude modulated at modHz.
func tone(freq, amp float64, seconds float64, modHz float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testRate
		env := 1.0
		if modHz > 0 {
			env = 0.55 + 0.45*math.Sin(2*math.Pi*modHz*t)
		}
		out[i] = amp * env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func TestSegmenter_Segment(t *testing.T) {
	Convey("Given a segmenter with default 25/10ms framing", t, func() {
		s := frame.NewSegmenter()

		Convey("When segmenting a 1s buffer", func() {
			buf := audio.NewBuffer(tone(200, 0.5, 1.0, 4), testRate)
			frames, err := s.Segment(buf)

			Convey("Then every sample should be covered by at least one frame", func() {
				So(err, ShouldBeNil)
				So(len(frames), ShouldBeGreaterThan, 0)

				covered := make([]bool, buf.Len())
				for _, f := range frames {
					valid := int(math.Round(float64(len(f.Samples)) * (1 - f.PaddingRatio)))
					for i := 0; i < valid && f.Start+i < buf.Len(); i++ {
						covered[f.Start+i] = true
					}
				}
				for i, c := range covered {
					if !c {
						t.Fatalf("sample %d not covered", i)
					}
				}
			})

			Convey("Then frames should be ordered with uniform hop", func() {
				So(err, ShouldBeNil)
				hop := testRate * 10 / 1000
				for i, f := range frames {
					So(f.Index, ShouldEqual, i)
					So(f.Start, ShouldEqual, i*hop)
					So(len(f.Samples), ShouldEqual, testRate*25/1000)
				}
			})

			Convey("Then only the tail frame may carry padding", func() {
				So(err, ShouldBeNil)
				for _, f := range frames[:len(frames)-1] {
					So(f.PaddingRatio, ShouldEqual, 0)
				}
				So(frames[len(frames)-1].PaddingRatio, ShouldBeBetweenOrEqual, 0, 1)
			})
		})

		Convey("When segmenting a buffer shorter than one window", func() {
			buf := audio.NewBuffer(tone(200, 0.5, 0.010, 0), testRate)
			frames, err := s.Segment(buf)

			Convey("Then it should yield a single zero-padded frame", func() {
				So(err, ShouldBeNil)
				So(len(frames), ShouldEqual, 1)
				So(frames[0].PaddingRatio, ShouldBeGreaterThan, 0)
				So(len(frames[0].Samples), ShouldEqual, testRate*25/1000)
			})
		})

		Convey("When segmenting a modulated voice-like tone", func() {
			buf := audio.NewBuffer(tone(200, 0.5, 1.0, 4), testRate)
			frames, err := s.Segment(buf)

			Convey("Then some frames should be voiced", func() {
				So(err, ShouldBeNil)
				var voiced int
				for _, f := range frames {
					if f.Voicing == frame.Voiced {
						voiced++
					}
				}
				So(voiced, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When segmenting a steady unmodulated sine", func() {
			buf := audio.NewBuffer(tone(440, 0.5, 1.0, 0), testRate)
			frames, err := s.Segment(buf)

			Convey("Then no frame should be classified voiced", func() {
				So(err, ShouldBeNil)
				for _, f := range frames {
					So(f.Voicing, ShouldNotEqual, frame.Voiced)
				}
			})
		})

		Convey("When segmenting a clip with a silent middle", func() {
			loud := tone(200, 0.5, 0.4, 4)
			quiet := make([]float64, int(0.4*testRate))
			samples := append(append(append([]float64(nil), loud...), quiet...), loud...)
			buf := audio.NewBuffer(samples, testRate)
			frames, err := s.Segment(buf)

			Convey("Then the quiet region should be tagged silent", func() {
				So(err, ShouldBeNil)
				var silent int
				for _, f := range frames {
					if f.Voicing == frame.Silent {
						silent++
					}
				}
				So(silent, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given a segmenter with hop larger than window", t, func() {
		s := frame.NewSegmenter(frame.WithWindowMS(10), frame.WithHopMS(25))

		Convey("When segmenting any buffer", func() {
			buf := audio.NewBuffer(tone(200, 0.5, 1.0, 0), testRate)
			_, err := s.Segment(buf)

			Convey("Then it should fail with ErrInvalidFraming", func() {
				So(err, ShouldWrap, frame.ErrInvalidFraming)
			})
		})
	})
}
