// Package pipeline runs the full analysis chain for one clip: normalize,
// segment, extract, score, decide.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/audio"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/decision"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/feature"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/frame"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/model"
	"github.com/Akhil3111/VoiceGuard-API/internal/domain/scoring"
	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
)

// Default framing used when neither config nor the request overrides it.
const (
	defaultWindowMS = 25
	defaultHopMS    = 10
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithNormalizer sets the audio normalizer.
func WithNormalizer(n *audio.Normalizer) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithFraming sets the default window and hop in milliseconds.
func WithFraming(windowMS, hopMS int) Option {
	return func(p *Pipeline) {
		if windowMS > 0 && hopMS > 0 && hopMS <= windowMS {
			p.windowMS = windowMS
			p.hopMS = hopMS
		}
	}
}

// WithRegistry sets the scoring backend registry.
func WithRegistry(r *scoring.Registry) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithDefaultBackend names the backend used when a request names none.
func WithDefaultBackend(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.defaultBackend = name
		}
	}
}

// WithAggregatorOptions sets the decision options applied when a request
// carries no threshold overrides.
func WithAggregatorOptions(opts ...decision.Option) Option {
	return func(p *Pipeline) {
		p.aggregatorOpts = opts
	}
}

// Pipeline composes the analysis stages. Safe for concurrent use: every
// request owns its own intermediate state.
type Pipeline struct {
	normalizer     *audio.Normalizer
	extractor      *feature.Extractor
	registry       *scoring.Registry
	defaultBackend string
	windowMS       int
	hopMS          int
	aggregatorOpts []decision.Option
	log            logger.Logger
}

// New creates a Pipeline with configuration options. With no options it runs
// the heuristic backend on default policy.
func New(opts ...Option) *Pipeline {
	registry := scoring.NewRegistry()
	registry.Register(scoring.NewHeuristic())

	p := &Pipeline{
		normalizer:     audio.NewNormalizer(),
		extractor:      feature.NewExtractor(),
		registry:       registry,
		defaultBackend: scoring.HeuristicName,
		windowMS:       defaultWindowMS,
		hopMS:          defaultHopMS,
		log:            logger.Named("pipeline"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Analyze runs the five stages in order and returns the verdict. Failures
// are wrapped in StageError so the gateway can map them to status codes.
// Deterministic: identical bytes, format, and overrides yield an identical
// verdict for the same backend version.
func (p *Pipeline) Analyze(ctx context.Context, raw []byte, f model.Format, ov *model.Overrides) (model.Verdict, error) {
	started := time.Now()

	buf, err := p.runNormalize(ctx, raw, f)
	if err != nil {
		return model.Verdict{}, err
	}

	frames, err := p.runSegment(buf, ov)
	if err != nil {
		return model.Verdict{}, err
	}

	vectors, clip, noVoice, err := p.runExtract(ctx, frames, buf.SampleRate())
	if err != nil {
		return model.Verdict{}, err
	}

	backend, err := p.selectBackend(ov)
	if err != nil {
		return model.Verdict{}, &StageError{Stage: StageScore, Err: err}
	}

	quality := decision.Quality{
		PaddingRatio:    meanPadding(frames),
		DegenerateRatio: feature.DegenerateRatio(vectors),
		VoicedRatio:     feature.VoicedRatio(vectors),
	}
	aggregator := p.buildAggregator(ov)

	var verdict model.Verdict
	if noVoice {
		// Nothing voiced to score; the decision stage still owns the verdict
		// shape so callers see one consistent object.
		verdict = aggregator.Decide(nil, quality, backend.Name(), backend.SchemaVersion())
		verdict.Label = model.LabelInsufficient
		verdict.ReasonCode = model.ReasonNoVoicedContent
		verdict.Explanation = "too little signal to judge: no voiced speech found"
	} else {
		scores, err := p.runScore(ctx, backend, clip)
		if err != nil {
			return model.Verdict{}, err
		}
		verdict = p.runDecide(aggregator, scores, quality, backend)
	}

	metrics.RecordClipAnalyzed()
	metrics.RecordVerdict(string(verdict.Label), verdict.AuthenticityScore)
	p.log.Debug(ctx, "clip analyzed",
		logger.String("label", string(verdict.Label)),
		logger.Float64("score", verdict.AuthenticityScore),
		logger.String("backend", verdict.Backend),
		logger.Int("frames", len(frames)),
		logger.Duration("took", time.Since(started)),
	)
	return verdict, nil
}

func (p *Pipeline) runNormalize(ctx context.Context, raw []byte, f model.Format) (*audio.Buffer, error) {
	started := time.Now()
	buf, err := p.normalizer.Normalize(ctx, raw, f)
	metrics.RecordStageLatency(string(StageNormalize), latencyMS(started))
	if err != nil {
		metrics.RecordStageFailure(string(StageNormalize))
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}
	return buf, nil
}

func (p *Pipeline) runSegment(buf *audio.Buffer, ov *model.Overrides) ([]frame.Frame, error) {
	windowMS, hopMS := p.windowMS, p.hopMS
	if ov != nil {
		if ov.WindowMS > 0 {
			windowMS = ov.WindowMS
		}
		if ov.HopMS > 0 {
			hopMS = ov.HopMS
		}
	}
	segmenter := frame.NewSegmenter(frame.WithWindowMS(windowMS), frame.WithHopMS(hopMS))

	started := time.Now()
	frames, err := segmenter.Segment(buf)
	metrics.RecordStageLatency(string(StageSegment), latencyMS(started))
	if err != nil {
		metrics.RecordStageFailure(string(StageSegment))
		return nil, &StageError{Stage: StageSegment, Err: err}
	}
	return frames, nil
}

// runExtract reports noVoice=true instead of failing when the clip has no
// voiced frames; the decision stage turns that into an insufficient-evidence
// verdict.
func (p *Pipeline) runExtract(ctx context.Context, frames []frame.Frame, rate int) ([]feature.FrameVector, feature.ClipVector, bool, error) {
	started := time.Now()
	vectors, err := p.extractor.Extract(ctx, frames, rate)
	if err != nil {
		metrics.RecordStageFailure(string(StageExtract))
		metrics.RecordStageLatency(string(StageExtract), latencyMS(started))
		return nil, feature.ClipVector{}, false, &StageError{Stage: StageExtract, Err: err}
	}

	clip, err := p.extractor.Aggregate(vectors)
	metrics.RecordStageLatency(string(StageExtract), latencyMS(started))
	if err != nil {
		if errors.Is(err, feature.ErrNoVoicedContent) {
			return vectors, feature.ClipVector{}, true, nil
		}
		metrics.RecordStageFailure(string(StageExtract))
		return nil, feature.ClipVector{}, false, &StageError{Stage: StageExtract, Err: err}
	}
	return vectors, clip, false, nil
}

func (p *Pipeline) runScore(ctx context.Context, backend scoring.Backend, clip feature.ClipVector) ([]model.SubScore, error) {
	engine := scoring.NewEngine(backend)

	started := time.Now()
	scores, err := engine.Score(ctx, clip)
	metrics.RecordStageLatency(string(StageScore), latencyMS(started))
	metrics.RecordBackendLatency(latencyMS(started))
	if err != nil {
		metrics.RecordStageFailure(string(StageScore))
		metrics.RecordBackendError()
		return nil, &StageError{Stage: StageScore, Err: err}
	}
	return scores, nil
}

func (p *Pipeline) runDecide(aggregator *decision.Aggregator, scores []model.SubScore, quality decision.Quality, backend scoring.Backend) model.Verdict {
	started := time.Now()
	verdict := aggregator.Decide(scores, quality, backend.Name(), backend.SchemaVersion())
	metrics.RecordStageLatency(string(StageDecide), latencyMS(started))
	return verdict
}

func (p *Pipeline) selectBackend(ov *model.Overrides) (scoring.Backend, error) {
	name := p.defaultBackend
	if ov != nil && ov.Backend != "" {
		name = ov.Backend
	}
	backend, err := p.registry.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("selecting backend: %w", err)
	}
	return backend, nil
}

func (p *Pipeline) buildAggregator(ov *model.Overrides) *decision.Aggregator {
	opts := append([]decision.Option(nil), p.aggregatorOpts...)
	if ov != nil && ov.GenuineThreshold > 0 && ov.SyntheticThreshold > ov.GenuineThreshold {
		opts = append(opts, decision.WithThresholds(ov.GenuineThreshold, ov.SyntheticThreshold))
	}
	return decision.NewAggregator(opts...)
}

func meanPadding(frames []frame.Frame) float64 {
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		sum += f.PaddingRatio
	}
	return sum / float64(len(frames))
}

// latencyMS returns elapsed time since start in milliseconds.
func latencyMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
