// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	repository "github.com/Akhil3111/VoiceGuard-API/internal/adapters/repository"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
)

// JobDependencies defines the interface for async job operations.
type JobDependencies interface {
	Submit(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (string, bool)
	Job(ctx context.Context, jobID string) (Outcome, error)
}

// JobsHandler handles async job submission and lookup.
type JobsHandler struct {
	deps    JobDependencies
	fetcher *AudioFetcher
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobDependencies) *JobsHandler {
	return &JobsHandler{deps: deps, fetcher: NewAudioFetcher()}
}

// jobResponse mirrors the OpenAPI schema for GET /v1/jobs/{job_id}.
type jobResponse struct {
	JobID      string         `json:"job_id"`
	Status     string         `json:"status"`
	Verdict    *model.Verdict `json:"verdict,omitempty"`
	Failure    string         `json:"failure,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// HandleSubmitJob handles POST /v1/jobs requests.
func (h *JobsHandler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	raw, format, overrides, err := req.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.AudioURL != "" {
		raw, err = h.fetcher.Fetch(r.Context(), req.AudioURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	jobID, ok := h.deps.Submit(r.Context(), raw, format, overrides)
	if !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, Status: "accepted"})
}

// HandleGetJob handles GET /v1/jobs/{job_id} requests. A job that is still
// queued or in flight has no recorded outcome yet and reads as 404.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /v1/jobs/
	jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	outcome, err := h.deps.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	resp := jobResponse{
		JobID:      outcome.JobID,
		Status:     "done",
		RecordedAt: outcome.RecordedAt,
	}
	if outcome.Failure != "" {
		resp.Status = "failed"
		resp.Failure = outcome.Failure
	} else {
		verdict := outcome.Verdict
		resp.Verdict = &verdict
	}
	writeJSON(w, http.StatusOK, resp)
}
