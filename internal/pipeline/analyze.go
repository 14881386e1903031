package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/interest"
	"github.com/keagan/gyrocut/internal/project"
	"github.com/keagan/gyrocut/internal/telemetry"
)

// Analyze scores every video and saves its segments artifact. Videos run
// in parallel up to the configured concurrency. A video whose telemetry
// cannot be used yields a degraded result instead of failing the batch;
// only cancellation aborts it.
func (p *Pipeline) Analyze(ctx context.Context, videos []project.Video, opts AnalyzeOptions) ([]Result, error) {
	p.logger.Info().
		Int("videos", len(videos)).
		Int("concurrency", p.cfg.Concurrency).
		Bool("recompute_stale", opts.RecomputeStale).
		Msg("starting analysis")

	results := make([]Result, len(videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, v := range videos {
		i, v := i, v
		g.Go(func() error {
			res := p.analyzeOne(gctx, v, opts)
			results[i] = res
			if res.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	p.logger.Info().
		Int("analyzed", lo.CountBy(results, func(r Result) bool { return r.Status == StatusAnalyzed })).
		Int("cached", lo.CountBy(results, func(r Result) bool { return r.Status == StatusCached })).
		Int("degraded", lo.CountBy(results, func(r Result) bool { return r.Status == StatusDegraded })).
		Msg("analysis complete")

	return results, nil
}

func (p *Pipeline) analyzeOne(ctx context.Context, v project.Video, opts AnalyzeOptions) Result {
	start := time.Now()
	params := p.cfg.Interest
	log := p.logger.With().Str("video", v.Filename).Logger()

	res := Result{Video: v}
	if err := ctx.Err(); err != nil {
		return p.degraded(res, start, err)
	}
	res.Duration = p.duration(ctx, v.Path())

	if !opts.Force {
		existing, err := clips.ReadArtifact(v.SegmentsPath())
		switch {
		case err == nil && p.fresh(existing, params, opts):
			log.Debug().Int("segments", len(existing.Segments)).Msg("artifact up to date")
			res.Status = StatusCached
			res.Artifact = existing
			res.Elapsed = time.Since(start)
			return res
		case err != nil && !errors.Is(err, clips.ErrNoArtifact):
			log.Warn().Err(err).Msg("unreadable artifact, recomputing")
		}
	}

	var tel *telemetry.Telemetry
	err := p.retry(ctx, "telemetry", func() error {
		var err error
		tel, err = p.ingest.Load(ctx, v.Path(), v.TelemetryPaths())
		return err
	})
	if err != nil {
		return p.degraded(res, start, fmt.Errorf("load telemetry: %w", err))
	}

	scored, err := interest.Score(tel, params)
	if err != nil {
		return p.degraded(res, start, fmt.Errorf("score: %w", err))
	}

	art := scored.Artifact(params)
	if err := clips.WriteArtifact(v.SegmentsPath(), art); err != nil {
		return p.degraded(res, start, fmt.Errorf("save segments: %w", err))
	}

	res.Status = StatusAnalyzed
	res.Artifact = art
	res.Elapsed = time.Since(start)

	log.Info().
		Int("segments", len(art.Segments)).
		Float64("selected_seconds", clips.TotalDuration(art.Segments)).
		Dur("elapsed", res.Elapsed).
		Msg("video analyzed")
	return res
}

// fresh reports whether an artifact on disk can be reused. Artifacts
// without interest levels are always recomputed. With RecomputeStale,
// artifacts from other parameters are recomputed too.
func (p *Pipeline) fresh(a *clips.Artifact, params interest.Params, opts AnalyzeOptions) bool {
	if len(a.InterestLevels) == 0 {
		return false
	}
	if opts.RecomputeStale && a.ParamsHash != params.Hash() {
		return false
	}
	return true
}

func (p *Pipeline) degraded(res Result, start time.Time, err error) Result {
	p.logger.Error().
		Err(err).
		Str("video", res.Video.Filename).
		Msg("analysis degraded")

	res.Status = StatusDegraded
	res.Err = err
	res.Artifact = &clips.Artifact{
		Segments:       []clips.Segment{},
		InterestLevels: []clips.InterestLevel{},
	}
	res.Elapsed = time.Since(start)
	return res
}
