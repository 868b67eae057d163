package meter

import (
	"math"

	"github.com/itohio/pulsecam/pkg/config"
	"github.com/itohio/pulsecam/pkg/dsp"
	"gonum.org/v1/gonum/stat"
)

// Quality bands returned by the rejection paths of Estimate.
const (
	QualityInsufficient = 0
	QualityFlatMax      = 50
	QualityOutOfRange   = 30
	QualityAcceptedMin  = 50
	QualityAcceptedMax  = 100
)

// Params are the engine tunables.
type Params struct {
	BufferSize             int
	SampleRate             float64
	MinBPM                 int
	MaxBPM                 int
	LowCutoff              float64
	HighCutoff             float64
	StabilizationWindow    int
	SignalQualityThreshold float64
	StabilityThreshold     int
	StableCountRequired    int
	CalculationInterval    int
}

// ParamsFrom converts the engine configuration section.
func ParamsFrom(e config.EngineConfig) Params {
	return Params{
		BufferSize:             e.BufferSize,
		SampleRate:             e.SampleRate,
		MinBPM:                 e.MinBPM,
		MaxBPM:                 e.MaxBPM,
		LowCutoff:              e.LowCutoff,
		HighCutoff:             e.HighCutoff,
		StabilizationWindow:    e.StabilizationWindow,
		SignalQualityThreshold: e.SignalQualityThreshold,
		StabilityThreshold:     e.StabilityThreshold,
		StableCountRequired:    e.StableCountRequired,
		CalculationInterval:    e.CalculationInterval,
	}
}

// DefaultParams returns the parameters of the default configuration.
func DefaultParams() Params {
	return ParamsFrom(config.Default().Engine)
}

// Reading is a BPM estimate. A nil BPM means indeterminate, never zero.
type Reading struct {
	BPM     *int
	Quality int
}

// Analysis is a Reading plus the intermediate values that produced it.
type Analysis struct {
	Reading
	Filtered  []float64
	Frequency float64
	Magnitude float64
	Variance  float64
}

// Estimate runs the detrend, variance, filter, spectrum and range gates over
// a raw buffer snapshot. It is pure and never fails: every rejection is a nil
// BPM with its own quality band.
func Estimate(raw []float64, p Params) Analysis {
	if len(raw) < p.StabilizationWindow || len(raw) < 2 {
		return Analysis{Reading: Reading{Quality: QualityInsufficient}}
	}

	detrended := dsp.Detrend(raw)
	variance := stat.Variance(detrended, nil)
	if math.IsNaN(variance) {
		variance = 0
	}

	a := Analysis{Variance: variance}

	if variance < p.SignalQualityThreshold {
		q := QualityFlatMax
		if p.SignalQualityThreshold > 0 {
			// Truncate so a rejected signal never reaches the accepted band
			q = int(math.Floor(math.Min(QualityFlatMax, variance/p.SignalQualityThreshold*QualityFlatMax)))
		}
		a.Quality = q
		return a
	}

	a.Filtered = dsp.BandPass(detrended, p.SampleRate, p.LowCutoff, p.HighCutoff)
	peak := dsp.DominantFrequency(a.Filtered, p.SampleRate, p.LowCutoff, p.HighCutoff)
	a.Frequency = peak.Frequency
	a.Magnitude = peak.Magnitude

	bpm := int(math.Round(peak.Frequency * 60))
	if bpm < p.MinBPM || bpm > p.MaxBPM {
		a.Quality = QualityOutOfRange
		return a
	}

	quality := peak.Magnitude / (variance * float64(len(raw))) * 100 * 2
	a.BPM = &bpm
	a.Quality = int(math.Round(clamp(quality, QualityAcceptedMin, QualityAcceptedMax)))
	return a
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
