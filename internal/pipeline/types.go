package pipeline

import (
	"context"
	"time"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/project"
	"github.com/keagan/gyrocut/internal/stabilize"
)

// Status reports how a video's analysis ended
type Status string

const (
	// StatusAnalyzed means segments were computed and saved
	StatusAnalyzed Status = "analyzed"
	// StatusCached means a current artifact was already on disk
	StatusCached Status = "cached"
	// StatusDegraded means telemetry was unusable; the result is empty
	StatusDegraded Status = "degraded"
)

// Result is the outcome of analyzing one video
type Result struct {
	Video    project.Video
	Status   Status
	Artifact *clips.Artifact
	// Duration of the source, zero when it could not be probed
	Duration float64
	Elapsed  time.Duration
	// Err is set when Status is StatusDegraded
	Err error
}

// AnalyzeOptions configures analysis behavior
type AnalyzeOptions struct {
	// RecomputeStale reanalyzes artifacts produced with other parameters
	RecomputeStale bool
	// Force reanalyzes every video
	Force bool
}

// StabilizeOptions configures stabilization of one segment
type StabilizeOptions struct {
	Segment clips.Segment
	Mode    stabilize.Mode
	// Alpha overrides the configured filter coefficient when set
	Alpha *float64
	// Output defaults to the video's stabilized segment path
	Output   string
	Progress stabilize.ProgressFunc
}

// CutOptions configures highlight reel assembly
type CutOptions struct {
	Stabilize bool
	Mode      stabilize.Mode
	TitleCard bool
	Title     string
}

// Media is the container collaborator used by the pipeline
type Media interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Fade(ctx context.Context, input, output string, opts ffmpeg.FadeOptions) error
	TitleCard(ctx context.Context, output string, opts ffmpeg.TitleCardOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
	RemuxAudio(ctx context.Context, videoOnly, audioSource, output string) error
}

// FrameReadCloser is a frame source that must be closed
type FrameReadCloser interface {
	stabilize.FrameSource
	Close() error
}

// FrameWriteCloser is a frame sink whose Close finishes the file
type FrameWriteCloser interface {
	stabilize.FrameSink
	Close() error
}

// FrameCodec decodes and encodes raw frames
type FrameCodec interface {
	OpenFrames(ctx context.Context, input string, width, height int) (FrameReadCloser, error)
	CreateFrames(ctx context.Context, output string, opts ffmpeg.FrameWriterOptions) (FrameWriteCloser, error)
}
