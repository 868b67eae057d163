package meter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(m *Meter, x []float64) (analyses int) {
	for _, v := range x {
		if _, ok := m.ProcessSample(v); ok {
			analyses++
		}
	}
	return analyses
}

func TestNew(t *testing.T) {
	m := New(DefaultParams())

	assert.NotNil(t, m)
	assert.Empty(t, m.Samples())
	snap := m.Snapshot()
	assert.Nil(t, snap.BPM)
	assert.Equal(t, 0, snap.SignalQuality)
	assert.False(t, snap.IsStable)
}

func TestProcessSample_DiscardsNaN(t *testing.T) {
	m := New(DefaultParams())

	_, ok := m.ProcessSample(math.NaN())
	assert.False(t, ok)
	_, ok = m.ProcessSample(math.Inf(1))
	assert.False(t, ok)
	assert.Empty(t, m.Samples())

	m.ProcessSample(1)
	assert.Equal(t, []float64{1}, m.Samples())
}

func TestProcessSample_Interval(t *testing.T) {
	m := New(DefaultParams())

	// Nothing until the stabilization window is filled
	assert.Equal(t, 0, feed(m, ppg(72, 89, 30, 3, 0)))

	// Analyses at 90, 100, 110 and 120 samples
	assert.Equal(t, 4, feed(m, ppg(72, 31, 30, 3, 0)))
}

func TestProcessSample_BufferBounded(t *testing.T) {
	p := DefaultParams()
	m := New(p)

	x := ppg(72, 1000, 30, 3, 0.3)
	feed(m, x)

	samples := m.Samples()
	require.Len(t, samples, p.BufferSize)
	assert.Equal(t, x[len(x)-p.BufferSize:], samples)

	snap := m.Snapshot()
	assert.Len(t, snap.RawSignal, p.BufferSize)
	assert.Len(t, snap.FilteredSignal, p.BufferSize)
}

func TestProcessSample_SyntheticSession(t *testing.T) {
	m := New(DefaultParams())

	var detections []int
	m.OnDetected(func(bpm int) {
		detections = append(detections, bpm)
	})
	var updates int
	m.OnUpdate(func(SignalData) {
		updates++
	})

	analyses := feed(m, ppg(72, 600, 30, 3, 0.3))

	assert.Equal(t, analyses, updates)
	require.Len(t, detections, 1, "one plateau, one detection")
	assert.InDelta(t, 72, detections[0], 5)

	snap := m.Snapshot()
	require.NotNil(t, snap.BPM)
	assert.InDelta(t, 72, *snap.BPM, 5)
	assert.True(t, snap.IsStable)
	assert.GreaterOrEqual(t, snap.SignalQuality, 50)
}

func TestProcessSample_ContactLostEndsPlateau(t *testing.T) {
	p := DefaultParams()
	p.BufferSize = 150
	m := New(p)

	var detections int
	m.OnDetected(func(int) { detections++ })

	feed(m, ppg(72, 300, 30, 3, 0.3))
	require.Equal(t, 1, detections)

	// A buffer full of flat samples is indeterminate
	feed(m, constant(150, 100))
	snap := m.Snapshot()
	assert.Nil(t, snap.BPM)
	assert.False(t, snap.IsStable)
	assert.Less(t, snap.SignalQuality, 50)

	feed(m, ppg(72, 300, 30, 3, 0.3))
	assert.GreaterOrEqual(t, detections, 2, "new plateau after contact loss")
	assert.True(t, m.Snapshot().IsStable)
}

func TestSnapshot_IsCopy(t *testing.T) {
	m := New(DefaultParams())
	feed(m, ppg(72, 300, 30, 3, 0.3))

	a := m.Snapshot()
	require.NotEmpty(t, a.RawSignal)
	require.NotNil(t, a.BPM)
	a.RawSignal[0] = -1
	*a.BPM = -1

	b := m.Snapshot()
	assert.NotEqual(t, -1.0, b.RawSignal[0])
	assert.NotEqual(t, -1, *b.BPM)
}

func TestReset(t *testing.T) {
	m := New(DefaultParams())
	feed(m, ppg(72, 300, 30, 3, 0.3))
	require.NotEmpty(t, m.Samples())

	m.Reset()
	assert.Empty(t, m.Samples())
	assert.Nil(t, m.Snapshot().BPM)

	// After a reset the stabilization window applies again
	assert.Equal(t, 0, feed(m, ppg(72, 89, 30, 3, 0)))
}

func TestSignalData_Clone(t *testing.T) {
	bpm := 70
	d := SignalData{BPM: &bpm, SignalQuality: 60, IsStable: true, RawSignal: []float64{1, 2}, FilteredSignal: []float64{3}}

	c := d.Clone()
	assert.Equal(t, d, c)

	*c.BPM = 1
	c.RawSignal[0] = 9
	assert.Equal(t, 70, bpm)
	assert.Equal(t, 1.0, d.RawSignal[0])

	assert.Nil(t, SignalData{}.Clone().BPM)
}
