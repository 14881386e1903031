package interest

import (
	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/telemetry"
)

// Result is the derived output of scoring one video
type Result struct {
	Segments       []clips.Segment
	InterestLevels []clips.InterestLevel
}

// Score runs the whole selection: raw curve, smoothing, segment
// extraction and per-second bucketing of the smoothed curve. Empty
// telemetry gives an empty result.
func Score(tel *telemetry.Telemetry, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	raw := RawCurve(tel)
	if len(raw) == 0 {
		return &Result{
			Segments:       []clips.Segment{},
			InterestLevels: []clips.InterestLevel{},
		}, nil
	}

	smoothed := Smooth(raw, p.Window)
	return &Result{
		Segments:       Extract(smoothed, p),
		InterestLevels: Bucket(smoothed),
	}, nil
}

// Artifact packages the result for persistence, stamped with the hash of
// the parameters that produced it.
func (r *Result) Artifact(p Params) *clips.Artifact {
	return &clips.Artifact{
		Segments:       r.Segments,
		InterestLevels: r.InterestLevels,
		ParamsHash:     p.Hash(),
	}
}
