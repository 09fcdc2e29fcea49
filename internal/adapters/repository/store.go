// Package repository defines the verdict store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/types"
)

// Outcome is the terminal result of one analysis job. Failure is empty on
// success; failed jobs are retrievable by ID but never ranked for review.
type Outcome struct {
	JobID      string
	Verdict    model.Verdict
	Failure    string
	RecordedAt time.Time
}

// Store provides read/write access to analyzed-clip outcomes.
type Store interface {
	// Record stores a job outcome. Recording the same job ID again replaces
	// the previous outcome.
	Record(ctx context.Context, outcome Outcome) error

	// Get returns the outcome for a job.
	// Returns ErrNotFound if the job is unknown or still in flight.
	Get(ctx context.Context, jobID string) (Outcome, error)

	// MostSuspicious returns the top-N successful outcomes ordered by
	// authenticity risk desc, job ID asc.
	MostSuspicious(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of outcomes recorded.
	Count(ctx context.Context) int
}
