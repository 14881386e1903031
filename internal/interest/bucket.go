package interest

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/keagan/gyrocut/internal/clips"
)

// Integral reports whether every timestamp is a whole number of seconds
func Integral(levels []clips.InterestLevel) bool {
	return lo.EveryBy(levels, func(l clips.InterestLevel) bool {
		return l.Timestamp == math.Trunc(l.Timestamp)
	})
}

// Bucket reduces a curve to one point per whole second, the mean of the
// points whose timestamp truncates to that second. A curve that is
// already integral is returned unchanged, so Bucket is idempotent.
func Bucket(levels []clips.InterestLevel) []clips.InterestLevel {
	if Integral(levels) {
		out := make([]clips.InterestLevel, len(levels))
		copy(out, levels)
		return out
	}

	groups := lo.GroupBy(levels, func(l clips.InterestLevel) float64 {
		return math.Trunc(l.Timestamp)
	})
	keys := lo.Keys(groups)
	sort.Float64s(keys)

	return lo.Map(keys, func(k float64, _ int) clips.InterestLevel {
		values := lo.Map(groups[k], func(l clips.InterestLevel, _ int) float64 {
			return l.InterestLevel
		})
		return clips.InterestLevel{Timestamp: k, InterestLevel: stat.Mean(values, nil)}
	})
}
