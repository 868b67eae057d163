package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsample_NoDownsampling(t *testing.T) {
	src := []float64{1.0, 1.1, 1.2}

	// Test with nil dst
	result := Downsample(nil, src, 10)
	require.Equal(t, 3, len(result))
	assert.Equal(t, src, result)

	// Test with sufficient capacity dst
	dst := make([]float64, 0, 10)
	result = Downsample(dst, src, 10)
	require.Equal(t, 3, len(result))
	assert.Equal(t, src, result)
	// Should reuse dst
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsample_WithDownsampling(t *testing.T) {
	src := make([]float64, 100)
	for i := range src {
		src[i] = float64(i)
	}

	dst := make([]float64, 0, 20)
	result := Downsample(dst, src, 10)
	require.Equal(t, 10, len(result))

	// First and newest values are always present
	assert.Equal(t, 0.0, result[0])
	assert.Equal(t, 99.0, result[len(result)-1])

	// Ordered, taken across the range
	for i := 1; i < len(result); i++ {
		assert.Greater(t, result[i], result[i-1])
	}
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsample_DestinationReuse(t *testing.T) {
	dst := make([]float64, 0, 10)

	result1 := Downsample(dst, []float64{1.0, 1.1}, 10)
	require.Len(t, result1, 2)

	result2 := Downsample(result1, []float64{2.0, 2.1, 2.2}, 10)
	require.Len(t, result2, 3)
	assert.Equal(t, []float64{2.0, 2.1, 2.2}, result2)
	assert.Equal(t, cap(dst), cap(result2))
}

func TestDownsample_SmallDestination(t *testing.T) {
	src := make([]float64, 50)
	for i := range src {
		src[i] = float64(i)
	}

	dst := make([]float64, 0, 2)
	result := Downsample(dst, src, 5)
	require.Len(t, result, 5)
	assert.GreaterOrEqual(t, cap(result), 5)
}

func TestDownsample_Empty(t *testing.T) {
	result := Downsample[float64](nil, nil, 10)
	assert.Empty(t, result)

	ints := Downsample(nil, []int{}, 0)
	assert.Empty(t, ints)
}

func TestDownsample_NonPositiveMaxCopiesAll(t *testing.T) {
	src := []int{1, 2, 3, 4}
	result := Downsample(nil, src, 0)
	assert.Equal(t, src, result)
}
