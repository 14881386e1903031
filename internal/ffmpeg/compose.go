package ffmpeg

import (
	"context"
	"fmt"
)

// FadeOptions configures a fade-in/fade-out re-encode
type FadeOptions struct {
	Duration float64 // seconds of fade at each end
	// Width, Height and FPS conform the output when set, so parts from
	// different recordings concatenate into one stream
	Width        int
	Height       int
	FPS          float64
	Encode       EncodeOptions
	ProgressFunc ProgressFunc
}

// Fade re-encodes input with a fade from black at the start and to black
// at the end. Audio is faded the same way when present.
func (e *Executor) Fade(ctx context.Context, input, output string, opts FadeOptions) error {
	info, err := e.ProbeVideo(ctx, input)
	if err != nil {
		return fmt.Errorf("fade: %w", err)
	}

	total := info.Duration.Seconds()
	d := opts.Duration
	if d*2 > total {
		d = total / 2
	}
	outStart := total - d
	if outStart < 0 {
		outStart = 0
	}

	fb := NewFilterBuilder().Scale(opts.Width, opts.Height)
	if opts.Width > 0 && opts.Height > 0 {
		fb.Custom("setsar=1")
	}
	vf := fb.FPS(opts.FPS).FadeIn(0, d).FadeOut(outStart, d).Build()
	args := []string{"-i", input}
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, opts.Encode.args()...)
	if info.HasAudio && d > 0 {
		af := fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s", ftoa(d), ftoa(outStart), ftoa(d))
		args = append(args, "-af", af)
	}
	if info.HasAudio {
		args = append(args, "-c:a", DefaultAudioCodec)
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Float64("fade", d).
		Msg("applying fades")

	return e.runAtomic(ctx, output, args, opts.ProgressFunc, "fading")
}

// TitleCardOptions configures a generated title card clip
type TitleCardOptions struct {
	Title    string
	Subtitle string
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Encode   EncodeOptions
}

// TitleCard renders a black clip with centred title and subtitle text and
// a silent audio track, so it concatenates cleanly with camera footage.
func (e *Executor) TitleCard(ctx context.Context, output string, opts TitleCardOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("title card duration must be positive")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("title card size must be positive")
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}

	titleSize := opts.Height / 12
	subSize := opts.Height / 24
	vf := NewFilterBuilder().
		DrawText(opts.Title, titleSize, "(h/2)-text_h").
		DrawText(opts.Subtitle, subSize, fmt.Sprintf("(h/2)+%d", subSize)).
		Build()

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s", opts.Width, opts.Height, ftoa(fps), ftoa(opts.Duration)),
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=48000",
		"-shortest",
	}
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, opts.Encode.args()...)
	args = append(args, "-c:a", DefaultAudioCodec)

	e.logger.Info().
		Str("output", output).
		Str("title", opts.Title).
		Msg("rendering title card")

	return e.runAtomic(ctx, output, args, nil, "title card")
}

// RemuxAudio copies the video stream of videoOnly and the audio stream of
// audioSource, if any, into output without re-encoding.
func (e *Executor) RemuxAudio(ctx context.Context, videoOnly, audioSource, output string) error {
	args := []string{
		"-i", videoOnly,
		"-i", audioSource,
		"-map", "0:v:0",
		"-map", "1:a?",
		"-c", "copy",
		"-shortest",
	}

	e.logger.Debug().
		Str("video", videoOnly).
		Str("audio", audioSource).
		Str("output", output).
		Msg("remuxing audio")

	return e.runAtomic(ctx, output, args, nil, "remux")
}
