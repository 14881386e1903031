package ffmpeg

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	skipIfNoFFmpeg(t)
	e, err := New(zerolog.Nop(), "", 2)
	require.NoError(t, err)
	return e
}

// makeTestVideo renders a short synthetic clip with a sine audio track
func makeTestVideo(t *testing.T, e *Executor, seconds int) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "src.mp4")
	err := e.Run(context.Background(), RunOptions{Args: []string{
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=10:duration=" + itoa(seconds),
		"-f", "lavfi", "-i", "sine=frequency=440:duration=" + itoa(seconds),
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac", "-shortest",
		out,
	}})
	require.NoError(t, err)
	return out
}

func TestFilterBuilder(t *testing.T) {
	got := NewFilterBuilder().
		Scale(1920, 1080).
		FPS(29.97).
		FadeIn(0, 0.25).
		FadeOut(9.75, 0.25).
		Scale(0, 10).
		FPS(0).
		Build()
	assert.Equal(t, "scale=1920:1080,fps=29.97,fade=t=in:st=0:d=0.25,fade=t=out:st=9.75:d=0.25", got)

	assert.Empty(t, NewFilterBuilder().FadeIn(0, 0).Build())
}

func TestDrawTextEscaping(t *testing.T) {
	got := NewFilterBuilder().DrawText("Run 1: 50% it's", 24, "10").Build()
	assert.Contains(t, got, `text='Run 1\: 50\% it\'s'`)
	assert.Contains(t, got, "fontsize=24")
}

func TestEncodeOptionsDefaults(t *testing.T) {
	args := EncodeOptions{}.args()
	assert.Equal(t, []string{"-c:v", "libx264", "-crf", "23", "-preset", "medium", "-pix_fmt", "yuv420p"}, args)

	args = EncodeOptions{VideoCodec: "libx265", CRF: 18, Preset: "slow"}.args()
	assert.Equal(t, []string{"-c:v", "libx265", "-crf", "18", "-preset", "slow", "-pix_fmt", "yuv420p"}, args)
}

func TestCreateConcatFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "it's.mp4")

	listPath, err := createConcatFile([]string{a, b})
	require.NoError(t, err)
	defer os.Remove(listPath)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "file '"+a+"'", lines[0])
	assert.Contains(t, lines[1], `it'\''s.mp4`)
}

func TestExecutorMissingBinary(t *testing.T) {
	_, err := New(zerolog.Nop(), "/nonexistent/ffmpeg-binary", 0)
	assert.Error(t, err)
}

func TestProbeVideo(t *testing.T) {
	e := newTestExecutor(t)
	src := makeTestVideo(t, e, 2)

	info, err := e.ProbeVideo(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 48, info.Height)
	assert.InDelta(t, 10.0, info.FPS, 0.01)
	assert.InDelta(t, 2.0, info.Duration.Seconds(), 0.2)
	assert.True(t, info.HasAudio)
	assert.Equal(t, 0, info.Rotation)
}

func TestDataPacketsMissingStream(t *testing.T) {
	e := newTestExecutor(t)
	src := makeTestVideo(t, e, 1)

	_, err := e.DataPackets(context.Background(), src, "gpmd")
	assert.ErrorIs(t, err, ErrNoDataStream)
}

func TestExtractClipIsAtomic(t *testing.T) {
	e := newTestExecutor(t)
	src := makeTestVideo(t, e, 3)
	out := filepath.Join(t.TempDir(), "clips", "cut.mp4")

	err := e.ExtractClip(context.Background(), src, ClipOptions{
		Start:     500 * time.Millisecond,
		End:       2 * time.Second,
		Output:    out,
		CopyCodec: true,
	})
	require.NoError(t, err)

	info, err := e.ProbeVideo(context.Background(), out)
	require.NoError(t, err)
	assert.Greater(t, info.Duration.Seconds(), 0.0)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp output must not survive")
}

func TestExtractClipRejectsEmptyRange(t *testing.T) {
	e := newTestExecutor(t)
	err := e.ExtractClip(context.Background(), "in.mp4", ClipOptions{Start: time.Second, End: time.Second, Output: "x.mp4"})
	assert.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "frames.mp4")

	fw, err := e.CreateFrames(ctx, out, FrameWriterOptions{Width: 32, Height: 16, FPS: 10})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 32, 16))
		for p := range img.Pix {
			img.Pix[p] = 255
		}
		img.Set(0, 0, color.RGBA{A: 255})
		require.NoError(t, fw.Write(ctx, img))
	}
	require.NoError(t, fw.Close())

	fr, err := e.OpenFrames(ctx, out, 32, 16)
	require.NoError(t, err)
	count := 0
	for {
		img, err := fr.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 32, img.Bounds().Dx())
		count++
	}
	require.NoError(t, fr.Close())
	assert.Equal(t, 5, count)
}

func TestFrameWriterRejectsWrongSize(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	fw, err := e.CreateFrames(ctx, filepath.Join(t.TempDir(), "x.mp4"), FrameWriterOptions{Width: 16, Height: 16, FPS: 10})
	require.NoError(t, err)
	err = fw.Write(ctx, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.Error(t, err)
	_ = fw.Close()
}

func TestTitleCardAndConcat(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	dir := t.TempDir()

	card := filepath.Join(dir, "title.mp4")
	require.NoError(t, e.TitleCard(ctx, card, TitleCardOptions{
		Title: "Ride", Subtitle: "2024", Duration: 1, Width: 64, Height: 48, FPS: 10,
	}))

	src := makeTestVideo(t, e, 1)
	faded := filepath.Join(dir, "faded.mp4")
	require.NoError(t, e.Fade(ctx, src, faded, FadeOptions{Duration: 0.25}))

	cardInfo, err := e.ProbeVideo(ctx, card)
	require.NoError(t, err)
	assert.Equal(t, 64, cardInfo.Width)
	assert.True(t, cardInfo.HasAudio)

	final := filepath.Join(dir, "final.mp4")
	require.NoError(t, e.Concat(ctx, ConcatOptions{Inputs: []string{faded, faded}, Output: final}))

	info, err := e.ProbeVideo(ctx, final)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, info.Duration.Seconds(), 0.5)
}

func TestFadeConformsSizeAndRate(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	src := makeTestVideo(t, e, 2)

	out := filepath.Join(t.TempDir(), "conformed.mp4")
	require.NoError(t, e.Fade(ctx, src, out, FadeOptions{
		Duration: 0.25,
		Width:    32,
		Height:   24,
		FPS:      5,
	}))

	info, err := e.ProbeVideo(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 32, info.Width)
	assert.Equal(t, 24, info.Height)
	assert.InDelta(t, 5.0, info.FPS, 0.01)
	assert.True(t, info.HasAudio)
}
