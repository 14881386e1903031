package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/project"
	"github.com/keagan/gyrocut/pkg/util"
)

// Cut assembles the highlight reel of a project: every saved segment is
// cut from its video, optionally stabilized, faded in and out, joined per
// video and finally concatenated behind an optional title card. It
// returns the path of the final cut.
func (p *Pipeline) Cut(ctx context.Context, proj *project.Project, opts CutOptions) (string, error) {
	p.logger.Info().
		Str("project", proj.Name).
		Int("videos", len(proj.Videos)).
		Bool("stabilize", opts.Stabilize).
		Msg("starting cut")

	if len(proj.Videos) == 0 {
		return "", fmt.Errorf("project %s has no videos", proj.Name)
	}
	target, err := p.target(ctx, proj)
	if err != nil {
		return "", err
	}

	parts := make([][]string, len(proj.Videos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, v := range proj.Videos {
		i, v := i, v
		g.Go(func() error {
			vp, err := p.cutVideo(gctx, v, opts, target)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Error().Err(err).Str("video", v.Filename).Msg("skipping video")
				return nil
			}
			parts[i] = vp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	inputs := lo.Flatten(parts)
	if len(inputs) == 0 {
		return "", fmt.Errorf("project %s has no segments to cut", proj.Name)
	}

	if opts.TitleCard {
		card, err := p.titleCard(ctx, proj, target, len(inputs), opts.Title)
		if err != nil {
			return "", err
		}
		inputs = append([]string{card}, inputs...)
	}

	final := proj.FinalCutPath()
	err = p.retry(ctx, "concat", func() error {
		return p.deps.Media.Concat(ctx, ffmpeg.ConcatOptions{
			Inputs:   inputs,
			Output:   final,
			ReEncode: true,
			Encode:   p.cfg.FFmpeg.EncodeOptions(),
		})
	})
	if err != nil {
		return "", fmt.Errorf("final concat: %w", err)
	}

	p.logger.Info().
		Str("output", final).
		Int("parts", len(inputs)).
		Msg("cut complete")
	return final, nil
}

// target returns the frame size and rate every part is conformed to: that
// of the project's first recording as it is displayed
func (p *Pipeline) target(ctx context.Context, proj *project.Project) (*ffmpeg.VideoInfo, error) {
	info, err := p.deps.Media.ProbeVideo(ctx, proj.Videos[0].Path())
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", proj.Videos[0].Filename, err)
	}
	t := *info
	if t.Rotation%180 != 0 {
		t.Width, t.Height = t.Height, t.Width
	}
	return &t, nil
}

// cutVideo prepares the faded parts of one video and joins them into the
// video's own reel. A video without an artifact contributes nothing.
func (p *Pipeline) cutVideo(ctx context.Context, v project.Video, opts CutOptions, target *ffmpeg.VideoInfo) ([]string, error) {
	art, err := clips.ReadArtifact(v.SegmentsPath())
	if errors.Is(err, clips.ErrNoArtifact) {
		p.logger.Warn().Str("video", v.Filename).Msg("not analyzed, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	segs := ClampSegments(art.Segments, p.duration(ctx, v.Path()))
	parts := make([]string, 0, len(segs))
	for i, seg := range segs {
		p.logger.Info().
			Str("video", v.Filename).
			Int("segment", i+1).
			Int("of", len(segs)).
			Msg("processing segment")

		src, err := p.segmentClip(ctx, v, seg)
		if err != nil {
			return nil, err
		}
		if opts.Stabilize {
			src, err = p.Stabilize(ctx, v, StabilizeOptions{Segment: seg, Mode: opts.Mode})
			if err != nil {
				return nil, err
			}
		}

		faded := v.FadedPath(seg)
		if !util.NonEmptyFile(faded) || opts.Stabilize {
			err = p.retry(ctx, "fade", func() error {
				return p.deps.Media.Fade(ctx, src, faded, ffmpeg.FadeOptions{
					Duration: p.cfg.Cut.FadeDuration,
					Width:    target.Width,
					Height:   target.Height,
					FPS:      target.FPS,
					Encode:   p.cfg.FFmpeg.EncodeOptions(),
				})
			})
			if err != nil {
				return nil, fmt.Errorf("fade segment: %w", err)
			}
		}
		parts = append(parts, faded)
	}

	if len(parts) > 0 {
		err := p.retry(ctx, "join", func() error {
			return p.deps.Media.Concat(ctx, ffmpeg.ConcatOptions{Inputs: parts, Output: v.JoinedPath()})
		})
		if err != nil {
			return nil, fmt.Errorf("join segments: %w", err)
		}
	}
	return parts, nil
}

// titleCard renders the opening card at the target size and rate
func (p *Pipeline) titleCard(ctx context.Context, proj *project.Project, target *ffmpeg.VideoInfo, clipCount int, title string) (string, error) {
	if title == "" {
		title = proj.Name
	}

	card := filepath.Join(proj.Dir, project.SegmentsDir, "title_card.mp4")
	err := p.retry(ctx, "title card", func() error {
		return p.deps.Media.TitleCard(ctx, card, ffmpeg.TitleCardOptions{
			Title:    title,
			Subtitle: fmt.Sprintf("%d clips", clipCount),
			Duration: p.cfg.Cut.TitleDuration,
			Width:    target.Width,
			Height:   target.Height,
			FPS:      target.FPS,
			Encode:   p.cfg.FFmpeg.EncodeOptions(),
		})
	})
	if err != nil {
		return "", fmt.Errorf("title card: %w", err)
	}
	return card, nil
}

// ClampSegments limits segments to [0, duration] and drops those left
// empty. A non-positive duration leaves the ends unclamped.
func ClampSegments(segs []clips.Segment, duration float64) []clips.Segment {
	out := make([]clips.Segment, 0, len(segs))
	for _, s := range segs {
		s.StartTime = max(s.StartTime, 0)
		if duration > 0 {
			s.EndTime = min(s.EndTime, duration)
		}
		if s.Validate() == nil {
			out = append(out, s)
		}
	}
	return out
}
