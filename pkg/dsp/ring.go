// Package dsp contains the signal primitives of the pulse engine: the sample
// ring buffer, linear detrending, the moving-average band-pass filter and the
// band-restricted spectral peak search.
package dsp

// Ring is a fixed-capacity FIFO of samples.
// Internally a circular array; externally it appears as an ordered sequence
// (oldest first, newest last). Once full, every Push evicts the oldest sample.
// Ring is not safe for concurrent use; it has a single writer.
type Ring struct {
	data  []float64
	start int // index of the oldest sample
	size  int
}

// NewRing creates an empty ring holding at most capacity samples.
// A capacity below 1 is treated as 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest one when the ring is full.
func (r *Ring) Push(v float64) {
	if r.size < len(r.data) {
		r.data[(r.start+r.size)%len(r.data)] = v
		r.size++
		return
	}
	r.data[r.start] = v
	r.start = (r.start + 1) % len(r.data)
}

// Len returns the number of samples currently held.
func (r *Ring) Len() int {
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Snapshot returns a copy of the most recent n samples in arrival order.
// Fewer samples are returned if the ring holds less than n; n < 0 returns all.
func (r *Ring) Snapshot(n int) []float64 {
	if n < 0 || n > r.size {
		n = r.size
	}
	out := make([]float64, n)
	first := r.start + r.size - n
	for i := range n {
		out[i] = r.data[(first+i)%len(r.data)]
	}
	return out
}

// Reset drops all samples, keeping the capacity.
func (r *Ring) Reset() {
	r.start = 0
	r.size = 0
}
