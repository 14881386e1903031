package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keagan/gyrocut/internal/stabilize"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300, cfg.Interest.Window)
	assert.Equal(t, 0.98, cfg.Fusion.Alpha(stabilize.Continuous))
	assert.Equal(t, 0.0, cfg.Fusion.Alpha(stabilize.Fixed))
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyrocut.yaml")
	yml := `
concurrency: 8
interest:
  threshold: 12.5
stabilize:
  mode: continuous
  fixed_offset: 90
retry:
  initial_interval: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 12.5, cfg.Interest.Threshold)
	assert.Equal(t, 300, cfg.Interest.Window)
	assert.Equal(t, "continuous", cfg.Stabilize.Mode)
	assert.Equal(t, 90.0, cfg.Stabilize.FixedOffset)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxInterval)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Interest, cfg.Interest)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stabilize:\n  mode: wobble\nfusion:\n  fixed_alpha: 2\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wobble")
	assert.Contains(t, err.Error(), "fixed_alpha")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Cut.TitleCard = false
	cfg.Telemetry.TimeUnit = "ms"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestContext(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 5
	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, 2, FromContext(context.Background()).Concurrency)
}

func TestEncodeOptions(t *testing.T) {
	cfg := Default()
	cfg.FFmpeg.CRF = 18
	opts := cfg.FFmpeg.EncodeOptions()
	assert.Equal(t, 18, opts.CRF)
	assert.Equal(t, "medium", opts.Preset)
}
