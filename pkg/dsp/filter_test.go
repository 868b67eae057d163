package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, freq, sampleRate, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		window int
		want   []float64
	}{
		{"empty", nil, 3, []float64{}},
		{"window 1 is identity", []float64{1, 5, 2}, 1, []float64{1, 5, 2}},
		{"odd window shrinks at edges", []float64{1, 2, 3, 4, 5}, 3, []float64{1.5, 2, 3, 4, 4.5}},
		{"even window leans forward", []float64{1, 2, 3, 4, 5}, 4, []float64{2, 2.5, 3.5, 4, 4.5}},
		{"window larger than input", []float64{2, 4}, 9, []float64{3, 3}},
		{"invalid window", []float64{2, 4}, 0, []float64{2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MovingAverage(tt.in, tt.window)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestWindowFor(t *testing.T) {
	assert.Equal(t, 7, WindowFor(30, 4.0))
	assert.Equal(t, 42, WindowFor(30, 0.7))
	assert.Equal(t, MinFilterWindow, WindowFor(30, 20), "floored to the minimum")
	assert.Equal(t, MinFilterWindow, WindowFor(30, 0))
}

func TestBandPass_ConstantIsRemoved(t *testing.T) {
	in := make([]float64, 300)
	for i := range in {
		in[i] = 128
	}

	out := BandPass(in, 30, 0.7, 4.0)
	require.Len(t, out, len(in))
	for _, v := range out {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestBandPass_Attenuation(t *testing.T) {
	const (
		n  = 300
		fs = 30.0
	)
	mid := func(x []float64) []float64 { return x[50 : n-50] }

	tests := []struct {
		name     string
		freq     float64
		minRatio float64
		maxRatio float64
	}{
		{"in band 1.5 Hz passes", 1.5, 0.6, 1.3},
		{"in band 1.0 Hz passes", 1.0, 0.6, 1.3},
		{"slow drift 0.1 Hz is suppressed", 0.1, 0, 0.2},
		{"fast flicker 10 Hz is suppressed", 10, 0, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sine(n, tt.freq, fs, 1)
			out := BandPass(in, fs, 0.7, 4.0)
			ratio := rms(mid(out)) / rms(mid(in))
			assert.GreaterOrEqual(t, ratio, tt.minRatio)
			assert.LessOrEqual(t, ratio, tt.maxRatio)
		})
	}
}

func TestBandPass_InvalidParameters(t *testing.T) {
	in := []float64{1, 2, 3}

	assert.Equal(t, in, BandPass(in, 0, 0.7, 4))
	assert.Equal(t, in, BandPass(in, 30, 0, 4))
	assert.Equal(t, in, BandPass(in, 30, 4, 0.7))
	assert.Empty(t, BandPass(nil, 30, 0.7, 4))
}

func TestBandPass_DoesNotMutateInput(t *testing.T) {
	in := sine(120, 1.2, 30, 2)
	orig := make([]float64, len(in))
	copy(orig, in)

	_ = BandPass(in, 30, 0.7, 4.0)
	assert.Equal(t, orig, in)
}
