package cache_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/cache"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
)

func verdict(score float64) model.Verdict {
	return model.Verdict{
		AuthenticityScore: score,
		Label:             model.LabelGenuine,
		Backend:           "heuristic-v1",
		SchemaVersion:     "v1",
	}
}

func TestDigest(t *testing.T) {
	Convey("Given an analysis request", t, func() {
		raw := []byte("audio-bytes")
		f := model.Format{Codec: "wav", SampleRate: 16_000, BitDepth: 16, Channels: 1}

		Convey("When digesting the same request twice", func() {
			So(cache.Digest(raw, f, nil), ShouldEqual, cache.Digest(raw, f, nil))
		})

		Convey("When the bytes differ", func() {
			So(cache.Digest(raw, f, nil), ShouldNotEqual, cache.Digest([]byte("other"), f, nil))
		})

		Convey("When the format differs", func() {
			g := f
			g.SampleRate = 8_000
			So(cache.Digest(raw, f, nil), ShouldNotEqual, cache.Digest(raw, g, nil))
		})

		Convey("When the overrides differ", func() {
			ov := &model.Overrides{SyntheticThreshold: 0.9, GenuineThreshold: 0.2}
			So(cache.Digest(raw, f, nil), ShouldNotEqual, cache.Digest(raw, f, ov))
		})

		Convey("When the backend override differs", func() {
			a := &model.Overrides{Backend: "heuristic-v1"}
			b := &model.Overrides{Backend: "other"}
			So(cache.Digest(raw, f, a), ShouldNotEqual, cache.Digest(raw, f, b))
		})
	})
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a bounded verdict cache", t, func() {
		c := cache.NewInMemoryCache(cache.WithMaxSize(3))

		Convey("When storing and looking up a verdict", func() {
			c.Store(ctx, "k1", verdict(0.1))
			got, ok := c.Lookup(ctx, "k1")

			Convey("Then the stored verdict should come back", func() {
				So(ok, ShouldBeTrue)
				So(got.AuthenticityScore, ShouldEqual, 0.1)
				So(c.Size(), ShouldEqual, 1)
			})
		})

		Convey("When looking up a missing key", func() {
			_, ok := c.Lookup(ctx, "absent")
			So(ok, ShouldBeFalse)
		})

		Convey("When storing the same key twice", func() {
			c.Store(ctx, "k1", verdict(0.1))
			c.Store(ctx, "k1", verdict(0.9))
			got, ok := c.Lookup(ctx, "k1")

			Convey("Then the verdict should be refreshed without growing", func() {
				So(ok, ShouldBeTrue)
				So(got.AuthenticityScore, ShouldEqual, 0.9)
				So(c.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the cache overflows", func() {
			for i := 0; i < 5; i++ {
				c.Store(ctx, fmt.Sprintf("k%d", i), verdict(float64(i)))
			}

			Convey("Then size should stay at the bound", func() {
				So(c.Size(), ShouldEqual, 3)
			})

			Convey("Then the earliest entries should survive LIFO eviction", func() {
				_, ok := c.Lookup(ctx, "k0")
				So(ok, ShouldBeTrue)
				_, ok = c.Lookup(ctx, "k1")
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded cache", t, func() {
		c := cache.NewInMemoryCache(cache.WithMaxSize(0))

		Convey("When storing many verdicts", func() {
			for i := 0; i < 1000; i++ {
				c.Store(ctx, fmt.Sprintf("k%d", i), verdict(0))
			}

			Convey("Then nothing should be evicted", func() {
				So(c.Size(), ShouldEqual, 1000)
				_, ok := c.Lookup(ctx, "k0")
				So(ok, ShouldBeTrue)
			})
		})
	})
}
