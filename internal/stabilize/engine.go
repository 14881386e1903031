package stabilize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/rs/zerolog"

	"github.com/keagan/gyrocut/internal/logging"
)

// FrameSource yields decoded frames in order and io.EOF after the last
type FrameSource interface {
	Next(ctx context.Context) (*image.RGBA, error)
}

// FrameSink consumes output frames in order. Write must not retain the
// frame after it returns.
type FrameSink interface {
	Write(ctx context.Context, img *image.RGBA) error
}

// ProgressFunc is called after each written frame
type ProgressFunc func(frame, total int)

// Engine rotates a frame sequence according to a Plan
type Engine struct {
	logger   zerolog.Logger
	progress ProgressFunc
}

// NewEngine creates an engine. progress may be nil.
func NewEngine(logger zerolog.Logger, progress ProgressFunc) *Engine {
	return &Engine{
		logger:   logging.WithComponent(logger, "stabilize"),
		progress: progress,
	}
}

// Run reads every frame from src, rotates it by the plan's angle for its
// index and writes it to sink. Cancellation is checked between frames.
// It returns the number of frames written.
func (e *Engine) Run(ctx context.Context, src FrameSource, sink FrameSink, plan *Plan) (int, error) {
	if plan == nil {
		return 0, fmt.Errorf("no stabilization plan")
	}

	e.logger.Info().
		Str("mode", string(plan.Mode)).
		Int("planned_frames", len(plan.Angles)).
		Msg("stabilizing")

	var dst *image.RGBA
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read frame %d: %w", n, err)
		}

		if dst == nil || dst.Bounds() != frame.Bounds() {
			dst = image.NewRGBA(frame.Bounds())
		}
		Rotate(dst, frame, plan.Angle(n))

		if err := sink.Write(ctx, dst); err != nil {
			return n, fmt.Errorf("write frame %d: %w", n, err)
		}
		n++
		if e.progress != nil {
			e.progress(n, len(plan.Angles))
		}
	}

	if n != len(plan.Angles) {
		e.logger.Warn().
			Int("frames", n).
			Int("planned_frames", len(plan.Angles)).
			Msg("decoded frame count differs from probe")
	}
	e.logger.Info().Int("frames", n).Msg("stabilization complete")
	return n, nil
}
