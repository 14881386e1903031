// Package stabilize levels the horizon of a clip by rotating each frame
// against the estimated camera roll.
package stabilize

import (
	"fmt"
	"sort"

	"github.com/keagan/gyrocut/internal/fusion"
)

// Mode selects how correction angles vary across a clip
type Mode string

const (
	// Continuous rotates every frame by its own interpolated roll
	Continuous Mode = "continuous"
	// Fixed rotates every frame by one angle estimated from the whole clip
	Fixed Mode = "fixed"
)

// ParseMode accepts "continuous" or "fixed"
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Continuous, Fixed:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown stabilization mode %q (want %q or %q)", s, Continuous, Fixed)
}

// PlanOptions describes the output frame grid and the mode
type PlanOptions struct {
	Mode   Mode
	FPS    float64
	Frames int
	// FixedOffset is added to the fixed angle, in degrees. Cameras
	// mounted sideways need 90.
	FixedOffset float64
	// Smooth runs a Savitzky-Golay pass over continuous angles
	Smooth bool
}

// Plan holds the correction angle of every output frame, in degrees
type Plan struct {
	Mode   Mode
	Angles []float64
}

// FrameTimestamps returns i/fps for every frame index
func FrameTimestamps(fps float64, count int) []float64 {
	ts := make([]float64, count)
	for i := range ts {
		ts[i] = float64(i) / fps
	}
	return ts
}

// NewPlan maps a roll curve onto the frame grid
func NewPlan(curve *fusion.RollCurve, opts PlanOptions) (*Plan, error) {
	if curve == nil || curve.Len() == 0 {
		return nil, fmt.Errorf("empty roll curve")
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", opts.FPS)
	}
	if opts.Frames <= 0 {
		return nil, fmt.Errorf("invalid frame count %d", opts.Frames)
	}

	roll := curve.Resample(FrameTimestamps(opts.FPS, opts.Frames))
	angles := make([]float64, opts.Frames)

	switch opts.Mode {
	case Continuous:
		if opts.Smooth {
			smoothed, err := fusion.Smooth(roll, opts.FPS)
			if err != nil {
				return nil, err
			}
			roll = smoothed
		}
		for i, r := range roll {
			angles[i] = -r
		}
	case Fixed:
		a := FixedAngle(roll, opts.FPS, opts.FixedOffset)
		for i := range angles {
			angles[i] = a
		}
	default:
		return nil, fmt.Errorf("unknown stabilization mode %q", opts.Mode)
	}

	return &Plan{Mode: opts.Mode, Angles: angles}, nil
}

// Angle returns the correction for frame i. Frames past the planned
// count reuse the last angle.
func (p *Plan) Angle(i int) float64 {
	if len(p.Angles) == 0 {
		return 0
	}
	if i >= len(p.Angles) {
		return p.Angles[len(p.Angles)-1]
	}
	if i < 0 {
		return p.Angles[0]
	}
	return p.Angles[i]
}

// FixedAngle takes roll sampled per frame, keeps one frame per second and
// returns the negated median plus offset.
func FixedAngle(frameRoll []float64, fps float64, offset float64) float64 {
	step := int(fps)
	if step < 1 {
		step = 1
	}
	sampled := make([]float64, 0, len(frameRoll)/step+1)
	for i := 0; i < len(frameRoll); i += step {
		sampled = append(sampled, frameRoll[i])
	}
	return -median(sampled) + offset
}

// median averages the two middle values of an even-length input
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
