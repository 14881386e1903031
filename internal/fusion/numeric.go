package fusion

import "sort"

// Gradient returns the per-index step of xs: central differences inside,
// one-sided differences at the ends.
func Gradient(xs []float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = xs[1] - xs[0]
	out[n-1] = xs[n-1] - xs[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (xs[i+1] - xs[i-1]) / 2
	}
	return out
}

// Interp linearly interpolates fp over increasing xp at x. Values outside
// xp are clamped to the end values. An empty curve yields 0.
func Interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if n == 0 {
		return 0
	}
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	// first index with xp[i] > x
	i := sort.Search(n, func(i int) bool { return xp[i] > x })
	x0, x1 := xp[i-1], xp[i]
	if x1 == x0 {
		return fp[i]
	}
	w := (x - x0) / (x1 - x0)
	return fp[i-1] + w*(fp[i]-fp[i-1])
}
