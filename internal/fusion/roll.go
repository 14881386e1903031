// Package fusion estimates camera roll from accelerometer and gyroscope
// streams with a complementary filter.
package fusion

import (
	"fmt"
	"math"

	"github.com/keagan/gyrocut/internal/telemetry"
)

// Window restricts fusion to samples in [Start, End] seconds. Curve
// timestamps are then relative to Start.
type Window struct {
	Start float64
	End   float64
}

// Options configures the complementary filter
type Options struct {
	// Alpha weights the integrated gyro estimate against the accel angle.
	// 1 trusts only the gyro, 0 only the accelerometer.
	Alpha  float64
	Window *Window
}

// Validate checks option ranges
func (o Options) Validate() error {
	if math.IsNaN(o.Alpha) || o.Alpha < 0 || o.Alpha > 1 {
		return fmt.Errorf("alpha must be within [0, 1], got %v", o.Alpha)
	}
	if o.Window != nil && o.Window.End <= o.Window.Start {
		return fmt.Errorf("window end %v must be after start %v", o.Window.End, o.Window.Start)
	}
	return nil
}

// RollCurve is a roll estimate in degrees at the native sensor rate
type RollCurve struct {
	Timestamps []float64
	Degrees    []float64
}

// Len returns the number of points
func (c *RollCurve) Len() int {
	return len(c.Timestamps)
}

// At returns the roll at t by linear interpolation, clamped to the first
// and last value outside the curve.
func (c *RollCurve) At(t float64) float64 {
	return Interp(t, c.Timestamps, c.Degrees)
}

// Resample evaluates the curve at every timestamp in ts
func (c *RollCurve) Resample(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = c.At(t)
	}
	return out
}

// Roll fuses accel and gyro into a roll curve.
//
// Both streams are truncated to the shorter length and paired by index.
// The curve uses the gyro timestamps since the gyro drives integration.
func Roll(accel, gyro telemetry.Stream, opts Options) (*RollCurve, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	offset := 0.0
	if opts.Window != nil {
		accel = accel.Window(opts.Window.Start, opts.Window.End)
		gyro = gyro.Window(opts.Window.Start, opts.Window.End)
		offset = opts.Window.Start
	}

	if err := accel.Check(telemetry.Accel); err != nil {
		return nil, err
	}
	if err := gyro.Check(telemetry.Gyro); err != nil {
		return nil, err
	}

	n := min(len(accel), len(gyro))
	accel = accel[:n]
	gyro = gyro[:n]

	ts := make([]float64, n)
	for i, s := range gyro {
		ts[i] = s.Timestamp - offset
	}
	dt := Gradient(ts)

	roll := make([]float64, n)
	roll[0] = accelRoll(accel[0])
	a := opts.Alpha
	for i := 1; i < n; i++ {
		roll[i] = a*(roll[i-1]+gyro[i].X*dt[i]) + (1-a)*accelRoll(accel[i])
	}

	return &RollCurve{Timestamps: ts, Degrees: roll}, nil
}

// accelRoll is the gravity-derived roll angle in degrees
func accelRoll(s telemetry.Sample) float64 {
	return math.Atan2(s.Y, s.Z) * 180 / math.Pi
}
