// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// Default cap on the review limit query when no option overrides it.
const defaultMaxReviewLimit = 100

// ReviewDependencies defines the interface for review queue operations.
type ReviewDependencies interface {
	Review(ctx context.Context, n int) ([]Entry, error)
}

// ReviewHandler handles review queue requests.
type ReviewHandler struct {
	deps     ReviewDependencies
	maxLimit int
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(deps ReviewDependencies) *ReviewHandler {
	return &ReviewHandler{
		deps:     deps,
		maxLimit: defaultMaxReviewLimit,
	}
}

// HandleGetReview handles GET /v1/review?limit=N requests.
func (h *ReviewHandler) HandleGetReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_review"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Review(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
