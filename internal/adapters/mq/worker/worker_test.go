package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Akhil3111/VoiceGuard-API/internal/adapters/mq/queue"
	"github.com/Akhil3111/VoiceGuard-API/internal/adapters/mq/worker"
	"github.com/Akhil3111/VoiceGuard-API/internal/adapters/repository"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// stubAnalyzer returns a fixed verdict, or an error for clips it was told to
// reject.
type stubAnalyzer struct {
	rejectID string
}

func (s *stubAnalyzer) Analyze(_ context.Context, raw []byte, _ model.Format, _ *model.Overrides) (model.Verdict, error) {
	if s.rejectID != "" && string(raw) == s.rejectID {
		return model.Verdict{}, errors.New("clip too short")
	}
	return model.Verdict{
		AuthenticityScore: 0.42,
		Label:             model.LabelSuspicious,
		Backend:           "heuristic-v1",
		SchemaVersion:     "v1",
	}, nil
}

// memoryRecorder collects outcomes for assertions.
type memoryRecorder struct {
	mu       sync.Mutex
	outcomes map[string]repository.Outcome
	fail     bool
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{outcomes: make(map[string]repository.Outcome)}
}

func (r *memoryRecorder) Record(_ context.Context, o repository.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("store unavailable")
	}
	r.outcomes[o.JobID] = o
	return nil
}

func (r *memoryRecorder) get(jobID string) (repository.Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[jobID]
	return o, ok
}

func (r *memoryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func job(id string, audio []byte) queue.Job {
	return model.Job{JobID: id, Audio: audio, Format: model.Format{Codec: "wav"}, SubmittedAt: time.Now()}
}

func TestInMemoryWorker(t *testing.T) {
	Convey("Given a worker over a queue, analyzer, and recorder", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		recorder := newMemoryRecorder()
		w := worker.NewInMemoryWorker(q, &stubAnalyzer{}, recorder, worker.WithName("worker-test"))
		go w.Run(ctx)

		Convey("When a job is enqueued", func() {
			So(q.Enqueue(ctx, job("job-1", []byte("clip"))), ShouldBeTrue)

			Convey("Then the verdict should be recorded", func() {
				So(waitFor(func() bool { _, ok := recorder.get("job-1"); return ok }), ShouldBeTrue)
				o, _ := recorder.get("job-1")
				So(o.Failure, ShouldBeEmpty)
				So(o.Verdict.Label, ShouldEqual, model.LabelSuspicious)
				So(o.RecordedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When shutting down after processing", func() {
			So(q.Enqueue(ctx, job("job-2", []byte("clip"))), ShouldBeTrue)
			So(waitFor(func() bool { return recorder.count() == 1 }), ShouldBeTrue)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			Convey("Then shutdown should complete cleanly", func() {
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})

	Convey("Given a worker whose analyzer rejects a clip", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		recorder := newMemoryRecorder()
		w := worker.NewInMemoryWorker(q, &stubAnalyzer{rejectID: "bad"}, recorder)
		go w.Run(ctx)

		Convey("When the rejected job is processed", func() {
			So(q.Enqueue(ctx, job("job-bad", []byte("bad"))), ShouldBeTrue)

			Convey("Then a failed outcome should still be recorded", func() {
				So(waitFor(func() bool { _, ok := recorder.get("job-bad"); return ok }), ShouldBeTrue)
				o, _ := recorder.get("job-bad")
				So(o.Failure, ShouldContainSubstring, "clip too short")
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		recorder := newMemoryRecorder()
		pool := worker.NewPool(4, q, &stubAnalyzer{}, recorder)
		pool.Start(ctx)

		Convey("When many jobs are enqueued", func() {
			for i := 0; i < 50; i++ {
				So(q.Enqueue(ctx, job(jobID(i), []byte("clip"))), ShouldBeTrue)
			}

			Convey("Then all outcomes should be recorded", func() {
				So(waitFor(func() bool { return recorder.count() == 50 }), ShouldBeTrue)
			})
		})

		Convey("When the pool shuts down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()

			Convey("Then shutdown should close the queue and return", func() {
				So(pool.Shutdown(shutdownCtx), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}

func jobID(i int) string {
	return fmt.Sprintf("job-%d", i)
}
