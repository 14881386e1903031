// Package interest scores motion telemetry and selects the footage worth
// keeping.
package interest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Params tunes scoring and segment selection
type Params struct {
	// Window is the moving-average width in raw samples
	Window int `yaml:"window"`
	// Threshold is the smoothed level at which a sample is interesting
	Threshold float64 `yaml:"threshold"`
	// MinimumLength is the shortest run kept, in seconds
	MinimumLength float64 `yaml:"minimum_length"`
	// Buffer pads both ends of every kept run, in seconds
	Buffer float64 `yaml:"buffer"`
	// MergeDistance joins runs whose gap is at most this many seconds
	MergeDistance float64 `yaml:"merge_distance"`
}

// DefaultParams returns the stock tuning
func DefaultParams() Params {
	return Params{
		Window:        300,
		Threshold:     10,
		MinimumLength: 1,
		Buffer:        0.5,
		MergeDistance: 3,
	}
}

// Validate rejects settings the scorer cannot honour
func (p Params) Validate() error {
	if p.Window < 1 {
		return fmt.Errorf("interest window must be at least 1, got %d", p.Window)
	}
	if p.MinimumLength < 0 {
		return fmt.Errorf("minimum length must not be negative, got %v", p.MinimumLength)
	}
	if p.Buffer < 0 {
		return fmt.Errorf("buffer must not be negative, got %v", p.Buffer)
	}
	if p.MergeDistance < 0 {
		return fmt.Errorf("merge distance must not be negative, got %v", p.MergeDistance)
	}
	return nil
}

// Hash identifies the parameter set. Artifacts record it so stale results
// can be told apart from current ones.
func (p Params) Hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("w=%d;t=%g;min=%g;buf=%g;merge=%g",
		p.Window, p.Threshold, p.MinimumLength, p.Buffer, p.MergeDistance)))
	return hex.EncodeToString(sum[:8])
}
