package cli

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/itohio/pulsecam/pkg/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic returns a 30 Hz fingertip trace at bpm with slow drift.
func synthetic(bpm float64, n int) []float64 {
	x := make([]float64, n)
	f := bpm / 60
	for i := range x {
		t := float64(i) / 30
		x[i] = 180 + 0.02*float64(i) + 3*(math.Sin(2*math.Pi*f*t)+0.5*math.Sin(4*math.Pi*f*t))
	}
	return x
}

func TestParseTrace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []float64
	}{
		{"one per line", "1\n2.5\n3\n", []float64{1, 2.5, 3}},
		{"csv first column", "1,100\n2,200\n", []float64{1, 2}},
		{"header", "luminance,timestamp\n10,0\n11,33\n", []float64{10, 11}},
		{"comments and blanks", "# recorded\n\n5\n\n6\n", []float64{5, 6}},
		{"padded", "  7 \n8\n", []float64{7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTrace(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTrace_InvalidSamplesBecomeNaN(t *testing.T) {
	got, err := parseTrace(strings.NewReader("1\nx\n3\n"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, math.IsNaN(got[1]))
}

func TestParseTrace_Empty(t *testing.T) {
	_, err := parseTrace(strings.NewReader(""))
	assert.Error(t, err)

	_, err = parseTrace(strings.NewReader("header\n"))
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	var out bytes.Buffer
	res := analyze(synthetic(72, 600), meter.DefaultParams(), &out, false)

	assert.Equal(t, 600, res.Samples)
	assert.Positive(t, res.Updates)
	require.Len(t, res.Detected, 1)
	assert.InDelta(t, 72, res.Detected[0], 5)
	require.NotNil(t, res.Final.BPM)
	assert.True(t, res.Final.IsStable)

	assert.Contains(t, out.String(), "stable heart rate:")

	printSummary(&out, res)
	assert.Contains(t, out.String(), "heart rate: ")
}

func TestAnalyze_PrintsChangesOnly(t *testing.T) {
	flat := make([]float64, 300)
	for i := range flat {
		flat[i] = 100
	}

	var changes, all bytes.Buffer
	res := analyze(flat, meter.DefaultParams(), &changes, false)
	analyze(flat, meter.DefaultParams(), &all, true)

	assert.Empty(t, res.Detected)
	assert.Equal(t, 1, strings.Count(changes.String(), "\n"))
	assert.Equal(t, res.Updates, strings.Count(all.String(), "\n"))
}

func TestAnalyzer_ResetsBetweenTraces(t *testing.T) {
	var out bytes.Buffer
	an := newAnalyzer(meter.DefaultParams(), &out, false)

	first := an.run(synthetic(72, 600))
	require.Len(t, first.Detected, 1)

	flat := an.run(make([]float64, 300))
	assert.Empty(t, flat.Detected)
	assert.Nil(t, flat.Final.BPM, "no samples carried over from the previous trace")
	assert.Equal(t, 0, flat.Final.SignalQuality)

	again := an.run(synthetic(72, 600))
	require.Len(t, again.Detected, 1, "callbacks resume after the previous replay shut down")
	assert.Equal(t, first.Updates, again.Updates)
	assert.Equal(t, first.Detected, again.Detected)
}

func TestFormatReading(t *testing.T) {
	bpm := 64
	assert.Equal(t, "bpm=-- quality=0 measuring", formatReading(meter.SignalData{}))
	assert.Equal(t, "bpm=64 quality=80 stable", formatReading(meter.SignalData{BPM: &bpm, SignalQuality: 80, IsStable: true}))
}
