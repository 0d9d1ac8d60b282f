package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Interp evaluates the piecewise-linear curve through (xp, fp) at every x.
// Outside the span of xp the end values are held.
//
// Device time axes are not guaranteed to be strictly increasing (repeated
// millisecond stamps, or an axis that was repeated to fit), so the points are
// ordered by time first and only the first sample of a repeated stamp is
// kept.
func Interp(x, xp, fp []float64) []float64 {
	xs, ys := monotone(xp, fp)
	out := make([]float64, len(x))

	switch len(xs) {
	case 0:
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	case 1:
		for i := range out {
			out[i] = ys[0]
		}
		return out
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i, v := range x {
		out[i] = pl.Predict(v)
	}
	return out
}

func monotone(xp, fp []float64) ([]float64, []float64) {
	n := len(xp)
	if len(fp) < n {
		n = len(fp)
	}

	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(xp[i]) || math.IsNaN(fp[i]) {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return xp[idx[a]] < xp[idx[b]] })

	xs := make([]float64, 0, len(idx))
	ys := make([]float64, 0, len(idx))
	for _, i := range idx {
		if len(xs) > 0 && xp[i] == xs[len(xs)-1] {
			continue
		}
		xs = append(xs, xp[i])
		ys = append(ys, fp[i])
	}
	return xs, ys
}
