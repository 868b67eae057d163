package dsp

import "math"

// MinFilterWindow is the smallest moving-average window the band-pass uses.
const MinFilterWindow = 3

// BandPass attenuates content outside [low, high] Hz with two cascaded
// moving averages: a short one (window ≈ sampleRate/high) acts as the low-pass,
// and subtracting a long smoothing of that result (window ≈ sampleRate/low)
// removes what is below the band. Both passes are O(n).
// Invalid parameters return an unchanged copy of x.
func BandPass(x []float64, sampleRate, low, high float64) []float64 {
	if len(x) == 0 || sampleRate <= 0 || low <= 0 || high <= low {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}

	lp := MovingAverage(x, WindowFor(sampleRate, high))
	trend := MovingAverage(lp, WindowFor(sampleRate, low))

	out := make([]float64, len(x))
	for i := range out {
		out[i] = lp[i] - trend[i]
	}
	return out
}

// WindowFor returns the moving-average length matching a cutoff frequency,
// floored to MinFilterWindow.
func WindowFor(sampleRate, cutoff float64) int {
	if cutoff <= 0 {
		return MinFilterWindow
	}
	w := int(math.Floor(sampleRate / cutoff))
	if w < MinFilterWindow {
		w = MinFilterWindow
	}
	return w
}

// MovingAverage computes a centered moving average using prefix sums.
// Near the edges the window shrinks to the samples available, so the output
// has no phase shift and the same length as x.
func MovingAverage(x []float64, window int) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if window < 1 {
		window = 1
	}

	prefix := make([]float64, n+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v
	}

	before := (window - 1) / 2
	after := window - 1 - before
	for i := range n {
		lo := max(i-before, 0)
		hi := min(i+after, n-1)
		out[i] = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
	}
	return out
}
