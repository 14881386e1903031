package telemetry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrExtraction is returned when the telemetry track or one of its
	// required sub-streams is absent from the container.
	ErrExtraction = errors.New("telemetry extraction failed")
	// ErrInsufficientData is returned when a stream has fewer than two samples.
	ErrInsufficientData = errors.New("insufficient telemetry data")
	// ErrIO is returned when an expected cache file is missing or unreadable.
	ErrIO = errors.New("telemetry cache io error")
	// ErrFormat is returned when a cache file holds malformed content.
	ErrFormat = errors.New("malformed telemetry cache")
)

// MinSamples is the smallest stream length usable for fusion and scoring
const MinSamples = 2

// Kind identifies a sensor stream
type Kind string

const (
	Accel Kind = "accel"
	Gyro  Kind = "gyro"
)

// FourCC returns the GPMF key carrying this stream
func (k Kind) FourCC() string {
	switch k {
	case Accel:
		return "ACCL"
	case Gyro:
		return "GYRO"
	}
	return ""
}

// Sample is one instantaneous 3-axis reading. Timestamp is in seconds.
type Sample struct {
	Timestamp float64 `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// Stream is an ordered sequence of samples from one sensor
type Stream []Sample

// Timestamps returns the timestamp column
func (s Stream) Timestamps() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v.Timestamp
	}
	return out
}

// Window returns the samples whose timestamp lies in [start, end]
func (s Stream) Window(start, end float64) Stream {
	out := make(Stream, 0, len(s))
	for _, v := range s {
		if v.Timestamp >= start && v.Timestamp <= end {
			out = append(out, v)
		}
	}
	return out
}

// Check returns ErrInsufficientData when the stream is too short
func (s Stream) Check(kind Kind) error {
	if len(s) < MinSamples {
		return fmt.Errorf("%s stream has %d samples: %w", kind, len(s), ErrInsufficientData)
	}
	return nil
}

// Telemetry holds both motion streams of one video
type Telemetry struct {
	Accel Stream
	Gyro  Stream
}

// Empty reports whether neither stream carries data
func (t *Telemetry) Empty() bool {
	return t == nil || (len(t.Accel) == 0 && len(t.Gyro) == 0)
}

// TimeUnit is the unit raw timestamps are expressed in
type TimeUnit string

const (
	Seconds      TimeUnit = "s"
	Milliseconds TimeUnit = "ms"
)

// ParseTimeUnit accepts "s", "ms" or "" (seconds)
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch TimeUnit(s) {
	case "", Seconds:
		return Seconds, nil
	case Milliseconds:
		return Milliseconds, nil
	}
	return "", fmt.Errorf("unknown time unit %q", s)
}

// Normalize converts timestamps expressed in unit to seconds in place
func (s Stream) Normalize(unit TimeUnit) {
	if unit != Milliseconds {
		return
	}
	for i := range s {
		s[i].Timestamp /= 1000.0
	}
}

// In returns a copy of s with timestamps expressed in unit instead of
// seconds
func (s Stream) In(unit TimeUnit) Stream {
	out := make(Stream, len(s))
	copy(out, s)
	if unit == Milliseconds {
		for i := range out {
			out[i].Timestamp *= 1000.0
		}
	}
	return out
}

// Finite returns ErrFormat when a sample holds a NaN or infinite value
func (s Stream) Finite() error {
	for i, v := range s {
		for _, f := range [...]float64{v.Timestamp, v.X, v.Y, v.Z} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("sample %d is not finite: %w", i, ErrFormat)
			}
		}
	}
	return nil
}
