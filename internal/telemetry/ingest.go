package telemetry

import (
	"context"
	"fmt"

	"github.com/keagan/gyrocut/internal/logging"
	"github.com/keagan/gyrocut/pkg/util"
	"github.com/rs/zerolog"
)

// CachePaths locates the per-stream cache files of one video
type CachePaths struct {
	Accel string
	Gyro  string
}

// Ingestor loads telemetry from cache files, extracting and caching it on
// first use.
type Ingestor struct {
	logger    zerolog.Logger
	extractor Extractor
	unit      TimeUnit
}

// NewIngestor creates an ingestor. unit is the timestamp unit of the cache
// files, both those found on disk and those it writes.
func NewIngestor(logger zerolog.Logger, extractor Extractor, unit TimeUnit) *Ingestor {
	if unit == "" {
		unit = Seconds
	}
	return &Ingestor{
		logger:    logging.WithComponent(logger, "telemetry"),
		extractor: extractor,
		unit:      unit,
	}
}

// Cached reports whether both cache files are present and non-empty
func (in *Ingestor) Cached(paths CachePaths) bool {
	return util.NonEmptyFile(paths.Accel) && util.NonEmptyFile(paths.Gyro)
}

// Load returns the telemetry of videoPath, reading caches when present
func (in *Ingestor) Load(ctx context.Context, videoPath string, paths CachePaths) (*Telemetry, error) {
	if in.Cached(paths) {
		accel, err := ReadStream(paths.Accel, in.unit)
		if err != nil {
			return nil, err
		}
		gyro, err := ReadStream(paths.Gyro, in.unit)
		if err != nil {
			return nil, err
		}
		in.logger.Debug().
			Str("video", videoPath).
			Int("accel", len(accel)).
			Int("gyro", len(gyro)).
			Msg("telemetry loaded from cache")
		return &Telemetry{Accel: accel, Gyro: gyro}, nil
	}

	in.logger.Info().Str("video", videoPath).Msg("extracting telemetry")
	t, err := in.extractor.Extract(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("extract telemetry: %w", err)
	}

	if err := WriteStream(paths.Accel, t.Accel, in.unit); err != nil {
		return nil, err
	}
	if err := WriteStream(paths.Gyro, t.Gyro, in.unit); err != nil {
		return nil, err
	}

	in.logger.Info().
		Str("video", videoPath).
		Int("accel", len(t.Accel)).
		Int("gyro", len(t.Gyro)).
		Msg("telemetry cached")
	return t, nil
}
