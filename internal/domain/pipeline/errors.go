package pipeline

import "fmt"

// Stage names tagged onto pipeline failures.
type Stage string

// Pipeline stages in execution order.
const (
	StageNormalize Stage = "normalize"
	StageSegment   Stage = "segment"
	StageExtract   Stage = "extract"
	StageScore     Stage = "score"
	StageDecide    Stage = "decide"
)

// StageError wraps a stage failure so callers can tell where the pipeline
// stopped without string matching.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *StageError) Unwrap() error {
	return e.Err
}
