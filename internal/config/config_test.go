package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/Akhil3111/VoiceGuard-API/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.JobQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.TargetSampleRate, convey.ShouldEqual, 16_000)
			convey.So(cfg.MinClipSeconds, convey.ShouldEqual, 0.5)
			convey.So(cfg.MaxClipSeconds, convey.ShouldEqual, 30)
			convey.So(cfg.WindowMS, convey.ShouldEqual, 25)
			convey.So(cfg.HopMS, convey.ShouldEqual, 10)
			convey.So(cfg.GenuineThreshold, convey.ShouldBeLessThan, cfg.SyntheticThreshold)
			convey.So(cfg.Backend, convey.ShouldEqual, "heuristic-v1")
		})
	})
}

func TestConfig_Load(t *testing.T) {
	convey.Convey("Given env overrides", t, func() {
		t.Setenv("VOICEGUARD_ADDR", ":7070")
		t.Setenv("VOICEGUARD_WINDOW_MS", "20")
		t.Setenv("VOICEGUARD_HOP_MS", "10")

		convey.Convey("When loading config", func() {
			cfg, err := config.Load(context.Background())

			convey.Convey("Then env values should win over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WindowMS, convey.ShouldEqual, 20)
			})
		})
	})

	convey.Convey("Given an invalid framing override", t, func() {
		t.Setenv("VOICEGUARD_WINDOW_MS", "10")
		t.Setenv("VOICEGUARD_HOP_MS", "25")

		convey.Convey("When loading config", func() {
			_, err := config.Load(context.Background())

			convey.Convey("Then loading should fail with ErrInvalidConfig", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
