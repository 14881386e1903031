package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/interest"
	"github.com/keagan/gyrocut/internal/stabilize"
	"github.com/keagan/gyrocut/internal/telemetry"
	"github.com/keagan/gyrocut/pkg/util"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	TempDir     string `yaml:"temp_dir"`
	Concurrency int    `yaml:"concurrency"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Telemetry ingest settings
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Segment selection
	Interest interest.Params `yaml:"interest"`

	// Roll estimation
	Fusion FusionConfig `yaml:"fusion"`

	// Horizon leveling
	Stabilize StabilizeConfig `yaml:"stabilize"`

	// Highlight reel assembly
	Cut CutConfig `yaml:"cut"`

	// Retry policy for ffmpeg invocations
	Retry RetryConfig `yaml:"retry"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
}

// EncodeOptions returns the encoder settings for re-encoded outputs
func (c FFmpegConfig) EncodeOptions() ffmpeg.EncodeOptions {
	return ffmpeg.EncodeOptions{VideoCodec: c.VideoCodec, CRF: c.CRF, Preset: c.Preset}
}

type TelemetryConfig struct {
	// TimeUnit of timestamps in externally produced cache files: s or ms
	TimeUnit string `yaml:"time_unit"`
}

type FusionConfig struct {
	ContinuousAlpha float64 `yaml:"continuous_alpha"`
	FixedAlpha      float64 `yaml:"fixed_alpha"`
}

// Alpha returns the filter coefficient used for mode
func (c FusionConfig) Alpha(mode stabilize.Mode) float64 {
	if mode == stabilize.Fixed {
		return c.FixedAlpha
	}
	return c.ContinuousAlpha
}

type StabilizeConfig struct {
	Mode        string  `yaml:"mode"`
	FixedOffset float64 `yaml:"fixed_offset"`
	Smooth      bool    `yaml:"smooth"`
}

type CutConfig struct {
	FadeDuration  float64 `yaml:"fade_duration"`
	TitleCard     bool    `yaml:"title_card"`
	TitleDuration float64 `yaml:"title_duration"`
	Stabilize     bool    `yaml:"stabilize"`
}

type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return util.WriteFileAtomic(path, data)
}

// Validate checks every section
func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if _, err := telemetry.ParseTimeUnit(c.Telemetry.TimeUnit); err != nil {
		errs = append(errs, err)
	}
	if err := c.Interest.Validate(); err != nil {
		errs = append(errs, err)
	}
	for name, a := range map[string]float64{
		"continuous_alpha": c.Fusion.ContinuousAlpha,
		"fixed_alpha":      c.Fusion.FixedAlpha,
	} {
		if a < 0 || a > 1 {
			errs = append(errs, fmt.Errorf("fusion %s must be within [0, 1], got %v", name, a))
		}
	}
	if _, err := stabilize.ParseMode(c.Stabilize.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Cut.FadeDuration < 0 {
		errs = append(errs, fmt.Errorf("fade duration must not be negative"))
	}
	if c.Cut.TitleCard && c.Cut.TitleDuration <= 0 {
		errs = append(errs, fmt.Errorf("title duration must be positive when title cards are enabled"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		WorkDir:     "./projects",
		TempDir:     os.TempDir(),
		Concurrency: 2,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
			Preset:     "medium",
			CRF:        ffmpeg.DefaultCRF,
			VideoCodec: ffmpeg.DefaultVideoCodec,
		},
		Telemetry: TelemetryConfig{
			TimeUnit: string(telemetry.Seconds),
		},
		Interest: interest.DefaultParams(),
		Fusion: FusionConfig{
			ContinuousAlpha: 0.98,
			FixedAlpha:      0,
		},
		Stabilize: StabilizeConfig{
			Mode:        string(stabilize.Fixed),
			FixedOffset: 0,
			Smooth:      true,
		},
		Cut: CutConfig{
			FadeDuration:  0.25,
			TitleCard:     true,
			TitleDuration: 3,
			Stabilize:     false,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./gyrocut.yaml",
		"./config.yaml",
		"./config.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".gyrocut", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
