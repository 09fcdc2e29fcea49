package metrics_test

import (
	"testing"

	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager_New(t *testing.T) {
	Convey("Given a new metrics manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithPrometheusRegistry(reg))

		Convey("Then it should be created successfully", func() {
			So(m, ShouldNotBeNil)
		})

		Convey("And the registry should expose registered metrics", func() {
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline activity", func() {
			metrics.RecordClipAnalyzed()
			metrics.RecordClipRejected("clip_too_short")
			metrics.RecordVerdict("genuine", 0.12)
			metrics.RecordStageLatency("normalize", 3.5)
			metrics.RecordStageFailure("score")
			metrics.RecordDegenerateFrame()
			metrics.RecordFramesSegmented(120)
			metrics.RecordBackendLatency(1.0)
			metrics.RecordCacheHit()
			metrics.RecordCacheMiss()

			Convey("Then the custom registry should gather without error", func() {
				families, err := metrics.GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When updating queue and worker gauges", func() {
			metrics.UpdateQueueSize(5)
			metrics.UpdateQueueCapacity(100)
			metrics.UpdateQueueUtilization(0.05)
			metrics.UpdateWorkerActiveCount(4)
			metrics.RecordWorkerProcessingLatency(12.0)

			Convey("Then gathering should still succeed", func() {
				_, err := metrics.GetRegistry().Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}
