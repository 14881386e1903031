package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs       []string
	Output       string
	ReEncode     bool
	Encode       EncodeOptions
	AudioCodec   string
	ProgressFunc ProgressFunc
}

// Concat merges multiple video files into one
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating videos")

	concatFile, err := createConcatFile(opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
	}

	if opts.ReEncode {
		args = append(args, opts.Encode.args()...)
		audioCodec := opts.AudioCodec
		if audioCodec == "" {
			audioCodec = DefaultAudioCodec
		}
		args = append(args, "-c:a", audioCodec)
	} else {
		args = append(args, "-c", "copy")
	}

	return e.runAtomic(ctx, opts.Output, args, opts.ProgressFunc, "concatenating")
}

// createConcatFile generates a temporary file list for ffmpeg concat
func createConcatFile(inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "gyrocut-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		// concat demuxer quoting: ' becomes '\''
		quoted := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", quoted); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}

func dirOf(path string) string {
	return filepath.Dir(path)
}
