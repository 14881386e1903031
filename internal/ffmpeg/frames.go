package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// FrameReader decodes a video into RGBA frames through an ffmpeg pipe
type FrameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	r      *bufio.Reader
	stderr bytes.Buffer
	width  int
	height int
	closed bool
}

// OpenFrames starts decoding input. Width and height must match the
// decoded stream, normally taken from ProbeVideo.
func (e *Executor) OpenFrames(ctx context.Context, input string, width, height int) (*FrameReader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	}
	e.logger.Debug().Strs("args", args).Msg("opening frame reader")

	fr := &FrameReader{width: width, height: height}
	fr.cmd = exec.CommandContext(ctx, e.ffmpegPath, args...)
	fr.cmd.Stderr = &fr.stderr

	stdout, err := fr.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := fr.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	fr.stdout = stdout
	fr.r = bufio.NewReaderSize(stdout, 1<<20)
	return fr, nil
}

// Next returns the next frame, or io.EOF after the last one
func (fr *FrameReader) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, fr.width, fr.height))
	if _, err := io.ReadFull(fr.r, img.Pix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated frame: %w", err)
		}
		return nil, err
	}
	return img, nil
}

// Close stops the decoder and waits for it
func (fr *FrameReader) Close() error {
	if fr.closed {
		return nil
	}
	fr.closed = true
	_, _ = io.Copy(io.Discard, fr.stdout)
	if err := fr.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w: %s", err, strings.TrimSpace(fr.stderr.String()))
	}
	return nil
}

// FrameWriter encodes RGBA frames into a video-only file
type FrameWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	w      *bufio.Writer
	stderr bytes.Buffer
	width  int
	height int
	once   sync.Once
	err    error
}

// FrameWriterOptions configures the encoder behind a FrameWriter
type FrameWriterOptions struct {
	Width  int
	Height int
	FPS    float64
	Encode EncodeOptions
}

// CreateFrames starts an encoder writing to output
func (e *Executor) CreateFrames(ctx context.Context, output string, opts FrameWriterOptions) (*FrameWriter, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %f", opts.FPS)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", ftoa(opts.FPS),
		"-i", "-",
		"-an",
	}
	args = append(args, opts.Encode.args()...)
	args = append(args, output)
	e.logger.Debug().Strs("args", args).Msg("opening frame writer")

	fw := &FrameWriter{width: opts.Width, height: opts.Height}
	fw.cmd = exec.CommandContext(ctx, e.ffmpegPath, args...)
	fw.cmd.Stderr = &fw.stderr

	stdin, err := fw.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	if err := fw.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	fw.stdin = stdin
	fw.w = bufio.NewWriterSize(stdin, 1<<20)
	return fw, nil
}

// Write appends one frame
func (fw *FrameWriter) Write(ctx context.Context, img *image.RGBA) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != fw.width || b.Dy() != fw.height {
		return fmt.Errorf("frame size %dx%d does not match encoder %dx%d", b.Dx(), b.Dy(), fw.width, fw.height)
	}
	rowLen := fw.width * 4
	for y := 0; y < fw.height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		if _, err := fw.w.Write(img.Pix[off : off+rowLen]); err != nil {
			return fmt.Errorf("write frame: %w: %s", err, strings.TrimSpace(fw.stderr.String()))
		}
	}
	return nil
}

// Close flushes pending frames and waits for the encoder to finish
func (fw *FrameWriter) Close() error {
	fw.once.Do(func() {
		flushErr := fw.w.Flush()
		closeErr := fw.stdin.Close()
		waitErr := fw.cmd.Wait()
		switch {
		case waitErr != nil:
			fw.err = fmt.Errorf("ffmpeg encode failed: %w: %s", waitErr, strings.TrimSpace(fw.stderr.String()))
		case flushErr != nil:
			fw.err = flushErr
		case closeErr != nil:
			fw.err = closeErr
		}
	})
	return fw.err
}
