package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/gyrocut/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start     time.Duration
	End       time.Duration
	Output    string
	CopyCodec bool // If true, use -c copy for fast extraction
	// VideoOnly drops audio and data streams from the cut
	VideoOnly    bool
	Encode       EncodeOptions
	AudioCodec   string
	ProgressFunc ProgressFunc
}

// ExtractClip cuts a segment from a video. The output appears only once
// ffmpeg has finished successfully.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(duration),
	}

	if opts.VideoOnly {
		args = append(args, "-map", "0:v:0")
	} else {
		args = append(args, "-map", "0:v:0", "-map", "0:a?")
	}

	if opts.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, opts.Encode.args()...)
		audioCodec := opts.AudioCodec
		if audioCodec == "" {
			audioCodec = DefaultAudioCodec
		}
		args = append(args, "-c:a", audioCodec)
	}

	err := e.runAtomic(ctx, opts.Output, args, opts.ProgressFunc, "clip extraction")
	if err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

// runAtomic runs ffmpeg writing to a temp sibling of output and renames it
// onto output on success. args must not contain the output path.
func (e *Executor) runAtomic(ctx context.Context, output string, args []string, progress ProgressFunc, label string) error {
	if err := util.EnsureDir(dirOf(output)); err != nil {
		return err
	}
	tmp := util.TempSibling(output)
	defer util.CleanupFiles(tmp)

	runOpts := RunOptions{
		Args:            append(args, tmp),
		ProgressHandler: progress,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg(label)
		},
	}
	if err := e.Run(ctx, runOpts); err != nil {
		return err
	}
	return util.CommitFile(tmp, output)
}
