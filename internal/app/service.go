// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/Akhil3111/VoiceGuard-API/internal/adapters/mq/queue"
	workerpool "github.com/Akhil3111/VoiceGuard-API/internal/adapters/mq/worker"
	repository "github.com/Akhil3111/VoiceGuard-API/internal/adapters/repository"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/cache"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/pipeline"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/types"
	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
)

// Service implements the API dependencies for the voice analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	review   repository.Store
	verdicts cache.Cache
	jobQueue jobqueue.Queue
	analyzer *pipeline.Pipeline
	pool     *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	cacheSize    int
	topCacheSize int
	pipelineOpts []pipeline.Option

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheSize sets the size of the verdict cache.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cacheSize = size
		}
	}
}

// WithReviewTopCacheSize sets the review store's snapshot size.
func WithReviewTopCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.topCacheSize = size
		}
	}
}

// WithPipelineOptions forwards options to the analysis pipeline built on Start.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *Service) {
		s.pipelineOpts = opts
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    10000,
		cacheSize:    50000,
		topCacheSize: 500,
		logger:       nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting voice analysis service...")

	// Initialize components
	s.review = repository.NewTreapStore(ctx,
		repository.WithTopCacheSize(s.topCacheSize),
	)
	s.verdicts = cache.NewInMemoryCache(
		cache.WithMaxSize(s.cacheSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.analyzer = pipeline.New(s.pipelineOpts...)

	// Create and start the worker pool
	s.pool = workerpool.NewPool(s.workerCount, s.jobQueue, s.analyzer, s.review)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "voice analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheSize", s.cacheSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping voice analysis service...")

	// Stop worker pool
	if s.pool != nil {
		s.pool.Stop()
	}

	// Close review store
	if s.review != nil {
		if closer, ok := s.review.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	// Close queue
	if q, ok := s.jobQueue.(*jobqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "voice analysis service stopped")
}

// Analyze runs the pipeline synchronously and returns the verdict. Results
// are cached by clip digest, and successful verdicts are recorded in the
// review store under a generated job id so they rank alongside async jobs.
func (s *Service) Analyze(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (model.Verdict, error) {
	key := cache.Digest(raw, f, ov)
	if verdict, ok := s.verdicts.Lookup(ctx, key); ok {
		s.logger.Debug(ctx, "verdict cache hit", logger.String("digest", key))
		return verdict, nil
	}

	verdict, err := s.analyzer.Analyze(ctx, raw, f, ov)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			metrics.RecordClipRejected(string(stageErr.Stage))
		}
		return model.Verdict{}, err
	}

	s.verdicts.Store(ctx, key, verdict)

	jobID := uuid.NewString()
	if recordErr := s.review.Record(ctx, repository.Outcome{
		JobID:      jobID,
		Verdict:    verdict,
		RecordedAt: time.Now().UTC(),
	}); recordErr != nil {
		s.logger.Warn(ctx, "failed to record sync verdict",
			logger.String("jobID", jobID),
			logger.Error(recordErr),
		)
	}

	return verdict, nil
}

// Submit enqueues a clip for asynchronous analysis and returns the job id.
// Returns ok=false when the queue is full or closed.
func (s *Service) Submit(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (string, bool) {
	job := model.Job{
		JobID:       uuid.NewString(),
		Audio:       raw,
		Format:      f,
		Overrides:   ov,
		SubmittedAt: time.Now().UTC(),
	}

	if !s.jobQueue.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "job queue full, rejecting submission",
			logger.String("jobID", job.JobID),
		)
		return "", false
	}

	s.logger.Debug(ctx, "job enqueued",
		logger.String("jobID", job.JobID),
		logger.Int("bytes", len(raw)),
	)
	metrics.UpdateQueueSize(s.jobQueue.Len(ctx))
	return job.JobID, true
}

// Job returns the recorded outcome for a job id.
func (s *Service) Job(ctx context.Context, jobID string) (repository.Outcome, error) {
	return s.review.Get(ctx, jobID)
}

// Review returns the n most suspicious recorded clips.
func (s *Service) Review(ctx context.Context, n int) ([]types.Entry, error) {
	return s.review.MostSuspicious(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"cacheSize":   s.cacheSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		totalRecords := s.review.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalRecords"] = totalRecords
		stats["cachedVerdicts"] = s.verdicts.Size()

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateReviewRecordsTotal(totalRecords)
	}

	return stats
}
