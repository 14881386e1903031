package fusion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// SmoothingOrder is the polynomial order of the Savitzky-Golay fit
	SmoothingOrder = 3
	// MinSmoothingWindow is the shortest window the smoother runs with
	MinSmoothingWindow = 5
)

// SmoothingWindow picks the odd window for a curve sampled at fps with n
// points: about half a second, capped at the largest odd length <= n.
func SmoothingWindow(fps float64, n int) int {
	w := int(fps/2) | 1
	if w > n {
		w = n
		if w%2 == 0 {
			w--
		}
	}
	return w
}

// Smooth applies a Savitzky-Golay filter sized for fps. Curves too short
// for a window of MinSmoothingWindow are returned unchanged.
func Smooth(values []float64, fps float64) ([]float64, error) {
	w := SmoothingWindow(fps, len(values))
	if w < MinSmoothingWindow {
		out := make([]float64, len(values))
		copy(out, values)
		return out, nil
	}
	return SavitzkyGolay(values, w, SmoothingOrder)
}

// SavitzkyGolay smooths values with a least-squares polynomial fit of the
// given order over an odd window. Interior points use the convolution
// coefficients; the first and last window/2 points are evaluated on a
// polynomial fitted to the edge window.
func SavitzkyGolay(values []float64, window, order int) ([]float64, error) {
	n := len(values)
	if window%2 == 0 || window < 1 {
		return nil, fmt.Errorf("window must be a positive odd number, got %d", window)
	}
	if order >= window {
		return nil, fmt.Errorf("order %d must be less than window %d", order, window)
	}
	if window > n {
		return nil, fmt.Errorf("window %d exceeds series length %d", window, n)
	}

	half := window / 2
	out := make([]float64, n)

	// Rows of the pseudo-inverse of the centred Vandermonde matrix; row 0
	// evaluates the fit at the window centre.
	centred, err := pseudoInverse(vandermonde(window, order, -float64(half)))
	if err != nil {
		return nil, err
	}
	for i := half; i < n-half; i++ {
		var acc float64
		for k := 0; k < window; k++ {
			acc += centred.At(0, k) * values[i-half+k]
		}
		out[i] = acc
	}

	// Edges: fit once per side on x = 0..window-1 and evaluate.
	edge, err := pseudoInverse(vandermonde(window, order, 0))
	if err != nil {
		return nil, err
	}
	head := polyFit(edge, values[:window])
	tail := polyFit(edge, values[n-window:])
	for i := 0; i < half; i++ {
		out[i] = polyEval(head, float64(i))
		out[n-half+i] = polyEval(tail, float64(window-half+i))
	}
	return out, nil
}

// vandermonde builds rows [1, x, x^2, ...] for x = from, from+1, ...
func vandermonde(rows, order int, from float64) *mat.Dense {
	a := mat.NewDense(rows, order+1, nil)
	for i := 0; i < rows; i++ {
		x := from + float64(i)
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= x
		}
	}
	return a
}

// pseudoInverse returns the least-squares solution operator of a
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	rows, _ := a.Dims()
	eye := mat.NewDense(rows, rows, nil)
	for i := 0; i < rows; i++ {
		eye.Set(i, i, 1)
	}
	var pinv mat.Dense
	if err := pinv.Solve(a, eye); err != nil {
		return nil, fmt.Errorf("savitzky-golay fit: %w", err)
	}
	return &pinv, nil
}

func polyFit(pinv *mat.Dense, y []float64) []float64 {
	var coef mat.VecDense
	coef.MulVec(pinv, mat.NewVecDense(len(y), append([]float64(nil), y...)))
	return coef.RawVector().Data
}

func polyEval(coef []float64, x float64) float64 {
	var acc float64
	for j := len(coef) - 1; j >= 0; j-- {
		acc = acc*x + coef[j]
	}
	return acc
}
