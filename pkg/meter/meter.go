// Package meter turns a stream of pulse samples into a stabilized BPM reading.
package meter

import (
	"math"
	"sync"

	"github.com/itohio/pulsecam/pkg/dsp"
)

// SignalData is the externally observable state after an analysis cycle.
// Each cycle replaces it entirely; consumers always receive copies.
type SignalData struct {
	BPM            *int
	SignalQuality  int
	IsStable       bool
	RawSignal      []float64
	FilteredSignal []float64
}

// Clone returns a deep copy.
func (d SignalData) Clone() SignalData {
	c := d
	if d.BPM != nil {
		b := *d.BPM
		c.BPM = &b
	}
	c.RawSignal = append([]float64(nil), d.RawSignal...)
	c.FilteredSignal = append([]float64(nil), d.FilteredSignal...)
	return c
}

// Meter buffers samples and periodically estimates the pulse rate.
//
// Samples are fed by a single writer (ProcessSample or ProcessSamples).
// Snapshot and the accessors may be called from any goroutine.
type Meter struct {
	params Params

	mu      sync.RWMutex
	buffer  *dsp.Ring
	tracker *Tracker
	pending int // samples since the last analysis
	data    SignalData

	callbacks []func(SignalData)
	detected  []func(bpm int)
	cbMu      sync.RWMutex

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a meter with empty buffer and tracker.
func New(p Params) *Meter {
	return &Meter{
		params:  p,
		buffer:  dsp.NewRing(p.BufferSize),
		tracker: NewTracker(p.StabilityThreshold, p.StableCountRequired),
	}
}

// Params returns the meter's parameters.
func (m *Meter) Params() Params {
	return m.params
}

// ProcessSamples processes samples from the input channel until it closes.
// After that no further callbacks are sent until ResetShutdown.
func (m *Meter) ProcessSamples(input <-chan float64) {
	for v := range input {
		m.ProcessSample(v)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// ResetShutdown allows callbacks again after ProcessSamples returned.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// ProcessSample pushes one sample. NaN samples are discarded. Every
// CalculationInterval samples, once the buffer holds StabilizationWindow
// samples, a new analysis runs; its result is returned with ok set.
func (m *Meter) ProcessSample(v float64) (SignalData, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return SignalData{}, false
	}

	m.mu.Lock()
	m.buffer.Push(v)
	m.pending++

	interval := max(m.params.CalculationInterval, 1)
	if m.pending < interval || m.buffer.Len() < m.params.StabilizationWindow {
		m.mu.Unlock()
		return SignalData{}, false
	}
	m.pending = 0

	raw := m.buffer.Snapshot(-1)
	a := Estimate(raw, m.params)

	var entered bool
	data := SignalData{
		SignalQuality:  a.Quality,
		RawSignal:      raw,
		FilteredSignal: a.Filtered,
	}
	if a.BPM != nil {
		data.BPM = a.BPM
		data.IsStable, entered = m.tracker.Observe(*a.BPM)
	} else {
		// Lost contact ends the plateau
		m.tracker.Clear()
	}
	m.data = data
	notify := !m.shutdown
	m.mu.Unlock()

	if notify {
		m.notifyCallbacks(data, entered)
	}
	return data.Clone(), true
}

// Snapshot returns a copy of the latest SignalData.
func (m *Meter) Snapshot() SignalData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Clone()
}

// Samples returns a copy of the buffered raw samples, oldest first.
func (m *Meter) Samples() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffer.Snapshot(-1)
}

// Reset empties the buffer, the tracker and the published data.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer.Reset()
	m.tracker.Clear()
	m.pending = 0
	m.data = SignalData{}
}

// OnUpdate registers a callback invoked after every analysis cycle.
// The callback should return quickly.
func (m *Meter) OnUpdate(callback func(SignalData)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// OnDetected registers a callback invoked once each time the reading
// becomes stable.
func (m *Meter) OnDetected(callback func(bpm int)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.detected = append(m.detected, callback)
}

// notifyCallbacks invokes callbacks without holding the state lock.
func (m *Meter) notifyCallbacks(data SignalData, entered bool) {
	m.cbMu.RLock()
	callbacks := make([]func(SignalData), len(m.callbacks))
	copy(callbacks, m.callbacks)
	detected := make([]func(int), len(m.detected))
	copy(detected, m.detected)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(data.Clone())
		}
	}

	if entered && data.BPM != nil {
		for _, cb := range detected {
			if cb != nil {
				cb(*data.BPM)
			}
		}
	}
}
