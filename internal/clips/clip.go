package clips

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Segment is a contiguous time range of a source video, in seconds
type Segment struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Duration returns the segment length in seconds
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Validate checks that the segment has positive length
func (s Segment) Validate() error {
	if !(s.EndTime > s.StartTime) {
		return fmt.Errorf("invalid segment [%.3f, %.3f]: end must be after start", s.StartTime, s.EndTime)
	}
	return nil
}

// Filename returns the conventional file name for this segment cut out of
// a video whose base name (without extension) is base. Both ends are
// written to the millisecond, so segments that differ by at least 1 ms
// never share a file.
func (s Segment) Filename(base, ext string) string {
	return fmt.Sprintf("%s_segment_%s_%s%s", base, millis(s.StartTime), millis(s.EndTime), ext)
}

func millis(t float64) string {
	return strconv.FormatFloat(math.Round(t*1000)/1000, 'f', 3, 64)
}

// InterestLevel is one point of the smoothed interest curve
type InterestLevel struct {
	Timestamp     float64 `json:"timestamp"`
	InterestLevel float64 `json:"interest_level"`
}

// ValidateList checks that segments are individually valid, sorted by
// start time and pairwise non-overlapping.
func ValidateList(segments []Segment) error {
	for i, s := range segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		prev := segments[i-1]
		if s.StartTime < prev.StartTime {
			return fmt.Errorf("segment %d starts before segment %d", i, i-1)
		}
		if s.StartTime < prev.EndTime {
			return fmt.Errorf("segment %d overlaps segment %d", i, i-1)
		}
	}
	return nil
}

// Normalize returns a sorted copy of segments with invalid entries removed
// and overlapping entries coalesced. Used for caller-provided lists.
func Normalize(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Validate() == nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })

	merged := out[:0]
	for _, s := range out {
		if n := len(merged); n > 0 && s.StartTime < merged[n-1].EndTime {
			if s.EndTime > merged[n-1].EndTime {
				merged[n-1].EndTime = s.EndTime
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// TotalDuration sums the lengths of all segments
func TotalDuration(segments []Segment) float64 {
	total := 0.0
	for _, s := range segments {
		total += s.Duration()
	}
	return total
}
