package dsp

import "gonum.org/v1/gonum/stat"

// Detrend removes the ordinary least-squares line fitted against sample index.
// The result has the same length as x; x itself is never modified.
// Sequences shorter than two samples are returned as an unchanged copy.
func Detrend(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if len(x) < 2 {
		return out
	}

	idx := make([]float64, len(x))
	for i := range idx {
		idx[i] = float64(i)
	}

	// y = alpha + beta*i
	alpha, beta := stat.LinearRegression(idx, x, nil, false)
	for i := range out {
		out[i] -= alpha + beta*idx[i]
	}
	return out
}
