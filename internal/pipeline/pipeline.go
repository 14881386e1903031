package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/gyrocut/internal/config"
	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/logging"
	"github.com/keagan/gyrocut/internal/mediacache"
	"github.com/keagan/gyrocut/internal/telemetry"
)

// Deps are the collaborators a Pipeline drives
type Deps struct {
	Media     Media
	Frames    FrameCodec
	Extractor telemetry.Extractor
	// Cache is optional
	Cache *mediacache.Cache
}

// ExecutorDeps wires every collaborator to one ffmpeg executor
func ExecutorDeps(logger zerolog.Logger, exec *ffmpeg.Executor, cache *mediacache.Cache) Deps {
	return Deps{
		Media:     exec,
		Frames:    executorFrames{exec},
		Extractor: telemetry.NewGPMFExtractor(logger, exec),
		Cache:     cache,
	}
}

// Pipeline orchestrates the entire video processing workflow
type Pipeline struct {
	logger zerolog.Logger
	cfg    *config.Config
	deps   Deps
	ingest *telemetry.Ingestor
	runID  string
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if deps.Media == nil || deps.Frames == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("pipeline requires media, frame codec and telemetry extractor")
	}

	unit, err := telemetry.ParseTimeUnit(cfg.Telemetry.TimeUnit)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger = logging.WithComponent(logger, "pipeline").With().Str("run_id", runID).Logger()

	return &Pipeline{
		logger: logger,
		cfg:    cfg,
		deps:   deps,
		ingest: telemetry.NewIngestor(logger, deps.Extractor, unit),
		runID:  runID,
	}, nil
}

// RunID identifies this pipeline instance in logs and temp file names
func (p *Pipeline) RunID() string {
	return p.runID
}

// retry runs fn with exponential backoff. Cancellation and telemetry
// content errors are not retried.
func (p *Pipeline) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.Retry.InitialInterval
	b.MaxInterval = p.cfg.Retry.MaxInterval
	b.MaxElapsedTime = 0

	attempts := max(p.cfg.Retry.MaxAttempts, 1)
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, next time.Duration) {
		p.logger.Warn().
			Err(err).
			Str("op", op).
			Dur("retry_in", next).
			Msg("operation failed, retrying")
	})
}

func permanent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, telemetry.ErrExtraction) ||
		errors.Is(err, telemetry.ErrInsufficientData) ||
		errors.Is(err, telemetry.ErrFormat)
}

// duration returns the cached source duration, or 0 when unknown
func (p *Pipeline) duration(ctx context.Context, path string) float64 {
	if p.deps.Cache == nil {
		return 0
	}
	e, err := p.deps.Cache.Lookup(ctx, path)
	if err != nil {
		p.logger.Warn().Err(err).Str("video", path).Msg("metadata lookup failed")
		return 0
	}
	return e.Duration
}

// executorFrames adapts the executor's concrete frame pipes
type executorFrames struct {
	exec *ffmpeg.Executor
}

func (f executorFrames) OpenFrames(ctx context.Context, input string, width, height int) (FrameReadCloser, error) {
	r, err := f.exec.OpenFrames(ctx, input, width, height)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f executorFrames) CreateFrames(ctx context.Context, output string, opts ffmpeg.FrameWriterOptions) (FrameWriteCloser, error) {
	w, err := f.exec.CreateFrames(ctx, output, opts)
	if err != nil {
		return nil, err
	}
	return w, nil
}
