// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	repository "github.com/Akhil3111/VoiceGuard-API/internal/adapters/repository"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/audio"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/frame"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/scoring"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Analyze runs the pipeline synchronously and returns the verdict.
	Analyze(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (model.Verdict, error)

	// Submit enqueues a clip for async analysis. Returns false on backpressure.
	Submit(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (string, bool)

	// Read operations expose recorded outcomes.
	Job(ctx context.Context, jobID string) (Outcome, error)
	Review(ctx context.Context, n int) ([]Entry, error)
}

// Entry mirrors the read shape returned by review queries.
type Entry = types.Entry

// Outcome mirrors the read shape returned by job queries.
type Outcome = repository.Outcome

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	analyzeHandler *AnalyzeHandler
	jobsHandler    *JobsHandler
	reviewHandler  *ReviewHandler

	apiKey string
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAPIKey enables X-API-Key authentication on the /v1 routes.
// An empty key leaves them open.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithMaxReviewLimit caps the limit query on GET /v1/review.
func WithMaxReviewLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.reviewHandler.maxLimit = limit
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		analyzeHandler: NewAnalyzeHandler(deps),
		jobsHandler:    NewJobsHandler(deps),
		reviewHandler:  NewReviewHandler(deps),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/analyze", s.protect(MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze")))
	mux.HandleFunc("/v1/jobs", s.protect(MetricsMiddleware(s.jobsHandler.HandleSubmitJob, "jobs")))
	mux.HandleFunc("/v1/jobs/", s.protect(MetricsMiddleware(s.jobsHandler.HandleGetJob, "job")))
	mux.HandleFunc("/v1/review", s.protect(MetricsMiddleware(s.reviewHandler.HandleGetReview, "review")))
}

// protect wraps a handler with API-key auth when a key is configured.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	if s.apiKey == "" {
		return next
	}
	return AuthMiddleware(next, s.apiKey)
}

// analyzeRequest mirrors the OpenAPI schema for POST /v1/analyze and
// POST /v1/jobs. Clips arrive inline as base64 or by reference as a URL.
type analyzeRequest struct {
	Audio     string            `json:"audio,omitempty"`
	AudioURL  string            `json:"audio_url,omitempty"`
	Format    formatRequest     `json:"format"`
	Overrides *overridesRequest `json:"overrides,omitempty"`
}

type formatRequest struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate,omitempty"`
	BitDepth   int    `json:"bit_depth,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

type overridesRequest struct {
	WindowMS           int     `json:"window_ms,omitempty"`
	HopMS              int     `json:"hop_ms,omitempty"`
	GenuineThreshold   float64 `json:"genuine_threshold,omitempty"`
	SyntheticThreshold float64 `json:"synthetic_threshold,omitempty"`
	Backend            string  `json:"backend,omitempty"`
}

func (a analyzeRequest) validate() error {
	switch {
	case strings.TrimSpace(a.Audio) == "" && strings.TrimSpace(a.AudioURL) == "":
		return errors.New("missing audio or audio_url")
	case a.Audio != "" && a.AudioURL != "":
		return errors.New("audio and audio_url are mutually exclusive")
	case a.Format.Codec != "wav" && a.Format.Codec != "pcm_s16le":
		return errors.New("codec must be wav or pcm_s16le")
	case a.Format.Codec == "pcm_s16le" && a.Format.SampleRate <= 0:
		return errors.New("missing sample_rate for raw pcm")
	}
	return nil
}

// decode returns the raw audio bytes plus the domain format and overrides.
// URL-referenced clips have no inline bytes; the handler downloads them after
// validation.
func (a analyzeRequest) decode() ([]byte, model.Format, *model.Overrides, error) {
	var raw []byte
	if a.Audio != "" {
		var err error
		raw, err = base64.StdEncoding.DecodeString(a.Audio)
		if err != nil {
			return nil, model.Format{}, nil, errors.New("audio must be base64")
		}
	}
	f := model.Format{
		Codec:      a.Format.Codec,
		SampleRate: a.Format.SampleRate,
		BitDepth:   a.Format.BitDepth,
		Channels:   a.Format.Channels,
	}
	var ov *model.Overrides
	if a.Overrides != nil {
		ov = &model.Overrides{
			WindowMS:           a.Overrides.WindowMS,
			HopMS:              a.Overrides.HopMS,
			GenuineThreshold:   a.Overrides.GenuineThreshold,
			SyntheticThreshold: a.Overrides.SyntheticThreshold,
			Backend:            a.Overrides.Backend,
		}
	}
	return raw, f, ov, nil
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor translates pipeline errors to an HTTP status and error code.
// Malformed or out-of-policy input is the caller's fault; decodable audio
// that carries too little signal gets 422; everything else is on us.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, audio.ErrClipTooShort),
		errors.Is(err, audio.ErrClipTooLong),
		errors.Is(err, frame.ErrInvalidFraming):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, scoring.ErrUnknownBackend):
		return http.StatusBadRequest, "unknown_backend"
	case errors.Is(err, audio.ErrInsufficientSignal):
		return http.StatusUnprocessableEntity, "insufficient_signal"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
