package interest

import (
	"github.com/keagan/gyrocut/internal/clips"
)

// Runs finds the stretches of a time-sorted curve at or above threshold.
// A run ends at the timestamp of the first sample below threshold, or at
// the last timestamp when it reaches the end. Runs shorter than
// minLength are dropped.
func Runs(curve []clips.InterestLevel, threshold, minLength float64) []clips.Segment {
	runs := make([]clips.Segment, 0)
	if len(curve) == 0 {
		return runs
	}

	inRun := false
	var start float64
	for _, p := range curve {
		if p.InterestLevel >= threshold {
			if !inRun {
				inRun = true
				start = p.Timestamp
			}
			continue
		}
		if inRun {
			if p.Timestamp-start >= minLength {
				runs = append(runs, clips.Segment{StartTime: start, EndTime: p.Timestamp})
			}
			inRun = false
		}
	}

	if inRun {
		end := curve[len(curve)-1].Timestamp
		if end-start >= minLength {
			runs = append(runs, clips.Segment{StartTime: start, EndTime: end})
		}
	}
	return runs
}

// Buffer widens every run by pad seconds on both sides. Runs left without
// positive length are dropped.
func Buffer(runs []clips.Segment, pad float64) []clips.Segment {
	out := make([]clips.Segment, 0, len(runs))
	for _, r := range runs {
		s := clips.Segment{StartTime: r.StartTime - pad, EndTime: r.EndTime + pad}
		if s.Validate() != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Merge joins consecutive segments whose gap is at most distance. The
// merged segment ends at the later of the two ends.
func Merge(segments []clips.Segment, distance float64) []clips.Segment {
	out := make([]clips.Segment, 0, len(segments))
	for _, s := range segments {
		if n := len(out); n > 0 && s.StartTime-out[n-1].EndTime <= distance {
			out[n-1].EndTime = max(out[n-1].EndTime, s.EndTime)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Extract turns a smoothed, time-sorted curve into the final segment list
func Extract(curve []clips.InterestLevel, p Params) []clips.Segment {
	runs := Runs(curve, p.Threshold, p.MinimumLength)
	return Merge(Buffer(runs, p.Buffer), p.MergeDistance)
}
