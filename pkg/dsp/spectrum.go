package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Peak is the dominant spectral component found inside a frequency band.
type Peak struct {
	Frequency float64 // Bin center frequency (Hz)
	Magnitude float64 // |X[k]| of the windowed, zero-padded transform
	Bin       int     // Bin index k
	Size      int     // Transform length N (power of two)
}

// DominantFrequency returns the strongest bin between low and high Hz.
//
// The samples are Hann-windowed, zero-padded to the next power of two and
// transformed with a real FFT. The searched bins are
// [floor(low*N/fs), ceil(high*N/fs)] clamped to [1, N/2], so the edge bins
// straddle the band. Ties resolve to the lowest frequency.
func DominantFrequency(x []float64, sampleRate, low, high float64) Peak {
	if len(x) < 2 || sampleRate <= 0 || high <= low {
		return Peak{}
	}

	size := NextPowerOfTwo(len(x))
	padded := make([]float64, size)
	w := window.Hann(len(x))
	for i, v := range x {
		padded[i] = v * w[i]
	}

	fft := fourier.NewFFT(size)
	coeffs := fft.Coefficients(nil, padded)

	minBin, maxBin := BinRange(size, sampleRate, low, high)

	best := Peak{Size: size, Bin: -1}
	for k := minBin; k <= maxBin && k < len(coeffs); k++ {
		mag := cmplx.Abs(coeffs[k])
		if best.Bin < 0 || mag > best.Magnitude {
			best.Bin = k
			best.Magnitude = mag
		}
	}
	if best.Bin < 0 {
		return Peak{Size: size}
	}
	best.Frequency = float64(best.Bin) * sampleRate / float64(size)
	return best
}

// BinRange returns the inclusive bin indices covering [low, high] Hz for a
// transform of the given size.
func BinRange(size int, sampleRate, low, high float64) (int, int) {
	res := sampleRate / float64(size)
	minBin := int(math.Floor(low / res))
	maxBin := int(math.Ceil(high / res))
	if minBin < 1 {
		minBin = 1
	}
	if maxBin > size/2 {
		maxBin = size / 2
	}
	return minBin, maxBin
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
