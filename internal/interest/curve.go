package interest

import (
	"sort"

	"github.com/samber/lo"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/telemetry"
)

// RawCurve sums the three axes of every sample, keyed by exact timestamp
// and sorted by time. Accel is read first; a gyro sample whose timestamp
// an accel sample already holds is dropped.
func RawCurve(tel *telemetry.Telemetry) []clips.InterestLevel {
	if tel.Empty() {
		return []clips.InterestLevel{}
	}

	levels := make(map[float64]float64, len(tel.Accel)+len(tel.Gyro))
	for _, stream := range []telemetry.Stream{tel.Accel, tel.Gyro} {
		for _, s := range stream {
			if _, ok := levels[s.Timestamp]; ok {
				continue
			}
			levels[s.Timestamp] = s.X + s.Y + s.Z
		}
	}

	keys := lo.Keys(levels)
	sort.Float64s(keys)
	return lo.Map(keys, func(t float64, _ int) clips.InterestLevel {
		return clips.InterestLevel{Timestamp: t, InterestLevel: levels[t]}
	})
}

// Smooth applies a centred moving average of width window. Point i
// averages indices [i-window/2, i+(window-1)/2]; near the edges only the
// points that exist are averaged.
func Smooth(curve []clips.InterestLevel, window int) []clips.InterestLevel {
	n := len(curve)
	out := make([]clips.InterestLevel, n)
	if n == 0 {
		return out
	}
	if window < 1 {
		window = 1
	}

	prefix := make([]float64, n+1)
	for i, p := range curve {
		prefix[i+1] = prefix[i] + p.InterestLevel
	}

	before, after := window/2, (window-1)/2
	for i, p := range curve {
		from := max(0, i-before)
		to := min(n-1, i+after)
		out[i] = clips.InterestLevel{
			Timestamp:     p.Timestamp,
			InterestLevel: (prefix[to+1] - prefix[from]) / float64(to-from+1),
		}
	}
	return out
}
