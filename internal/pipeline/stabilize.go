package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/fusion"
	"github.com/keagan/gyrocut/internal/project"
	"github.com/keagan/gyrocut/internal/stabilize"
	"github.com/keagan/gyrocut/internal/telemetry"
	"github.com/keagan/gyrocut/pkg/util"
)

// Stabilize levels the horizon of one segment of v and returns the path
// of the stabilized clip. The segment clip is cut first when missing.
// Nothing is left at the output path unless every step succeeded.
func (p *Pipeline) Stabilize(ctx context.Context, v project.Video, opts StabilizeOptions) (string, error) {
	seg := opts.Segment
	if err := seg.Validate(); err != nil {
		return "", err
	}
	mode := opts.Mode
	if mode == "" {
		m, err := stabilize.ParseMode(p.cfg.Stabilize.Mode)
		if err != nil {
			return "", err
		}
		mode = m
	}
	alpha := p.cfg.Fusion.Alpha(mode)
	if opts.Alpha != nil {
		alpha = *opts.Alpha
	}
	output := opts.Output
	if output == "" {
		output = v.StabilizedPath(seg)
	}

	log := p.logger.With().
		Str("video", v.Filename).
		Float64("start", seg.StartTime).
		Float64("end", seg.EndTime).
		Str("mode", string(mode)).
		Logger()
	log.Info().Float64("alpha", alpha).Msg("stabilizing segment")

	var tel *telemetry.Telemetry
	err := p.retry(ctx, "telemetry", func() error {
		var err error
		tel, err = p.ingest.Load(ctx, v.Path(), v.TelemetryPaths())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("load telemetry: %w", err)
	}

	curve, err := fusion.Roll(tel.Accel, tel.Gyro, fusion.Options{
		Alpha:  alpha,
		// the cut clip starts at the clamped start, so roll time 0 must too
		Window: &fusion.Window{Start: max(seg.StartTime, 0), End: seg.EndTime},
	})
	if err != nil {
		return "", fmt.Errorf("estimate roll: %w", err)
	}

	clip, err := p.segmentClip(ctx, v, seg)
	if err != nil {
		return "", err
	}

	info, err := p.deps.Media.ProbeVideo(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("probe segment: %w", err)
	}
	width, height := info.Width, info.Height
	// frames are decoded upright, so a quarter-turn display matrix swaps
	// the decoded dimensions
	if info.Rotation%180 != 0 {
		width, height = height, width
	}

	plan, err := stabilize.NewPlan(curve, stabilize.PlanOptions{
		Mode:        mode,
		FPS:         info.FPS,
		Frames:      info.Frames,
		FixedOffset: p.cfg.Stabilize.FixedOffset,
		Smooth:      p.cfg.Stabilize.Smooth,
	})
	if err != nil {
		return "", fmt.Errorf("plan angles: %w", err)
	}
	if mode == stabilize.Fixed {
		log.Info().Float64("angle", plan.Angle(0)).Msg("fixed correction angle")
	}

	if err := util.EnsureDir(p.cfg.TempDir); err != nil {
		return "", err
	}
	videoOnly := filepath.Join(p.cfg.TempDir, "gyrocut-"+uuid.NewString()+".mp4")
	defer util.CleanupFiles(videoOnly)

	if err := p.warp(ctx, clip, videoOnly, width, height, info.FPS, plan, opts.Progress); err != nil {
		return "", err
	}

	err = p.retry(ctx, "remux", func() error {
		return p.deps.Media.RemuxAudio(ctx, videoOnly, clip, output)
	})
	if err != nil {
		return "", fmt.Errorf("remux audio: %w", err)
	}

	log.Info().Str("output", output).Msg("segment stabilized")
	return output, nil
}

// warp runs the engine between a decoder on input and an encoder on output
func (p *Pipeline) warp(ctx context.Context, input, output string, width, height int, fps float64, plan *stabilize.Plan, progress stabilize.ProgressFunc) (err error) {
	src, err := p.deps.Frames.OpenFrames(ctx, input, width, height)
	if err != nil {
		return fmt.Errorf("open frames: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sink, err := p.deps.Frames.CreateFrames(ctx, output, ffmpeg.FrameWriterOptions{
		Width:  width,
		Height: height,
		FPS:    fps,
		Encode: p.cfg.FFmpeg.EncodeOptions(),
	})
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	engine := stabilize.NewEngine(p.logger, progress)
	if _, err := engine.Run(ctx, src, sink, plan); err != nil {
		_ = sink.Close()
		return err
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("finish encode: %w", err)
	}
	return nil
}

// segmentClip returns the cut clip of seg, extracting it when missing.
// Clips are committed by rename, so an existing file is complete.
func (p *Pipeline) segmentClip(ctx context.Context, v project.Video, seg clips.Segment) (string, error) {
	clip := v.SegmentPath(seg)
	if util.NonEmptyFile(clip) {
		return clip, nil
	}

	start := max(seg.StartTime, 0)
	err := p.retry(ctx, "extract", func() error {
		return p.deps.Media.ExtractClip(ctx, v.Path(), ffmpeg.ClipOptions{
			Start:  util.Seconds(start),
			End:    util.Seconds(seg.EndTime),
			Output: clip,
			Encode: p.cfg.FFmpeg.EncodeOptions(),
		})
	})
	if err != nil {
		return "", fmt.Errorf("extract segment: %w", err)
	}
	return clip, nil
}
