package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/logging"
	"github.com/rs/zerolog"
)

// Extractor reads the accelerometer and gyroscope streams of a container
type Extractor interface {
	Extract(ctx context.Context, videoPath string) (*Telemetry, error)
}

// PacketSource yields the raw packets of a container data stream
type PacketSource interface {
	DataPackets(ctx context.Context, input, codecTag string) ([]ffmpeg.DataPacket, error)
}

// GPMFCodecTag is the codec tag of the GoPro metadata track
const GPMFCodecTag = "gpmd"

// GPMFExtractor decodes GoPro GPMF telemetry. Axis order and units are
// kept as the camera writes them (ACCL in m/s², GYRO in rad/s).
type GPMFExtractor struct {
	logger zerolog.Logger
	source PacketSource
}

// NewGPMFExtractor creates an extractor reading packets from source
func NewGPMFExtractor(logger zerolog.Logger, source PacketSource) *GPMFExtractor {
	return &GPMFExtractor{
		logger: logging.WithComponent(logger, "gpmf"),
		source: source,
	}
}

// Extract pulls ACCL and GYRO samples, timestamping each sample by spreading
// it evenly across its packet's presentation interval.
func (g *GPMFExtractor) Extract(ctx context.Context, videoPath string) (*Telemetry, error) {
	packets, err := g.source.DataPackets(ctx, videoPath, GPMFCodecTag)
	if err != nil {
		if errors.Is(err, ffmpeg.ErrNoDataStream) {
			return nil, fmt.Errorf("%s: no %s track: %w", videoPath, GPMFCodecTag, ErrExtraction)
		}
		return nil, fmt.Errorf("%s: %w: %v", videoPath, ErrExtraction, err)
	}

	t := &Telemetry{}
	for i, p := range packets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		accel, err := decodePacket(p, Accel)
		if err != nil {
			return nil, fmt.Errorf("%s: packet %d: %w: %w", videoPath, i, ErrExtraction, err)
		}
		gyro, err := decodePacket(p, Gyro)
		if err != nil {
			return nil, fmt.Errorf("%s: packet %d: %w: %w", videoPath, i, ErrExtraction, err)
		}
		t.Accel = append(t.Accel, accel...)
		t.Gyro = append(t.Gyro, gyro...)
	}

	g.logger.Debug().
		Str("video", videoPath).
		Int("packets", len(packets)).
		Int("accel", len(t.Accel)).
		Int("gyro", len(t.Gyro)).
		Msg("gpmf decoded")

	if len(t.Accel) == 0 {
		return nil, fmt.Errorf("%s: no %s samples: %w", videoPath, Accel.FourCC(), ErrExtraction)
	}
	if len(t.Gyro) == 0 {
		return nil, fmt.Errorf("%s: no %s samples: %w", videoPath, Gyro.FourCC(), ErrExtraction)
	}
	if err := t.Accel.Check(Accel); err != nil {
		return nil, err
	}
	if err := t.Gyro.Check(Gyro); err != nil {
		return nil, err
	}
	return t, nil
}

func decodePacket(p ffmpeg.DataPacket, kind Kind) (Stream, error) {
	vecs, err := vectors(p.Data, kind.FourCC())
	if err != nil {
		return nil, err
	}
	out := make(Stream, len(vecs))
	step := 0.0
	if len(vecs) > 0 {
		step = p.Duration / float64(len(vecs))
	}
	for i, v := range vecs {
		out[i] = Sample{
			Timestamp: p.PTS + float64(i)*step,
			X:         v[0],
			Y:         v[1],
			Z:         v[2],
		}
	}
	if err := out.Finite(); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return out, nil
}
