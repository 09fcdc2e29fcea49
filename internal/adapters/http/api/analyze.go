// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
)

// AnalyzeDependencies defines the interface for synchronous analysis.
type AnalyzeDependencies interface {
	Analyze(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (model.Verdict, error)
}

// AnalyzeHandler handles synchronous analysis requests.
type AnalyzeHandler struct {
	deps    AnalyzeDependencies
	fetcher *AudioFetcher
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalyzeDependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, fetcher: NewAudioFetcher()}
}

// HandleAnalyze handles POST /v1/analyze requests. The verdict is returned
// in the response body; processing failures map to status codes via
// statusFor.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
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

	verdict, err := h.deps.Analyze(r.Context(), raw, format, overrides)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
