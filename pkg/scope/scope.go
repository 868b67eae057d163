package scope

import (
	"fmt"
	"image/color"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/pulsecam/pkg/meter"
	"github.com/itohio/pulsecam/pkg/sample"
)

// ScopeWidget displays the raw and filtered pulse signal with the current reading.
type ScopeWidget struct {
	widget.BaseWidget

	sampleRate float64
	maxBPM     int

	// Data (protected by mu)
	mu       sync.RWMutex
	raw      []float64 // downsampled for display
	filtered []float64 // downsampled for display
	beats    []float64 // beat positions as a fraction of the trace width
	duration float64   // seconds covered by the traces
	bpm      *int
	quality  int
	stable   bool

	rawRange      [2]float64
	filteredRange [2]float64

	maxDisplayPoints int
}

// New creates a scope for signals sampled at sampleRate.
func New(sampleRate float64, maxBPM int) *ScopeWidget {
	s := &ScopeWidget{
		sampleRate:       sampleRate,
		maxBPM:           maxBPM,
		raw:              make([]float64, 0, 600),
		filtered:         make([]float64, 0, 600),
		rawRange:         [2]float64{0, 1},
		filteredRange:    [2]float64{-1, 1},
		maxDisplayPoints: 600,
	}
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the displayed data.
// This should be called from the meter callback using fyne.Do().
func (s *ScopeWidget) UpdateData(d meter.SignalData) {
	s.mu.Lock()

	s.raw = sample.Downsample(s.raw, d.RawSignal, s.maxDisplayPoints)
	s.filtered = sample.Downsample(s.filtered, d.FilteredSignal, s.maxDisplayPoints)
	s.rawRange = autoScale(s.raw)
	s.filteredRange = symmetricScale(s.filtered)
	s.beats = beatPositions(d.FilteredSignal, minBeatDistance(s.sampleRate, s.maxBPM))
	s.duration = 0
	if s.sampleRate > 0 {
		s.duration = float64(len(d.RawSignal)) / s.sampleRate
	}
	s.bpm = nil
	if d.BPM != nil {
		b := *d.BPM
		s.bpm = &b
	}
	s.quality = d.SignalQuality
	s.stable = d.IsStable

	s.mu.Unlock()

	s.Refresh()
}

// Clear empties the scope.
func (s *ScopeWidget) Clear() {
	s.UpdateData(meter.SignalData{})
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}

// autoScale returns the data range with a 10% margin.
func autoScale(values []float64) [2]float64 {
	if len(values) == 0 {
		return [2]float64{0, 1}
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return [2]float64{lo - margin, hi + margin}
}

// symmetricScale centers the range on zero.
func symmetricScale(values []float64) [2]float64 {
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		peak = 1
	}
	peak *= 1.1
	return [2]float64{-peak, peak}
}

// minBeatDistance is the shortest beat interval in samples at maxBPM.
func minBeatDistance(sampleRate float64, maxBPM int) int {
	if sampleRate <= 0 || maxBPM <= 0 {
		return 1
	}
	return max(int(sampleRate*60/float64(maxBPM)), 1)
}

// beatPositions finds positive local maxima at least minDistance samples
// apart and returns them as fractions of the signal length.
func beatPositions(filtered []float64, minDistance int) []float64 {
	if len(filtered) < 3 {
		return nil
	}

	var (
		beats []float64
		last  = -minDistance
	)
	for i := 1; i < len(filtered)-1; i++ {
		v := filtered[i]
		if v <= 0 || v < filtered[i-1] || v <= filtered[i+1] {
			continue
		}
		if i-last < minDistance {
			continue
		}
		beats = append(beats, float64(i)/float64(len(filtered)-1))
		last = i
	}
	return beats
}

// statusText renders the reading overlay.
func statusText(bpm *int, quality int, stable bool) string {
	if bpm == nil {
		if quality == 0 {
			return "Place your fingertip on the camera"
		}
		return fmt.Sprintf("-- BPM  (quality %d%%)", quality)
	}
	state := "measuring"
	if stable {
		state = "stable"
	}
	return fmt.Sprintf("%d BPM  (quality %d%%, %s)", *bpm, quality, state)
}
