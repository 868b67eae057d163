package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRing(t *testing.T) {
	r := NewRing(5)
	assert.Equal(t, 5, r.Cap())
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot(-1))

	r = NewRing(0)
	assert.Equal(t, 1, r.Cap())
}

func TestRing_PushBelowCapacity(t *testing.T) {
	r := NewRing(4)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []float64{1, 2, 3}, r.Snapshot(-1))
	assert.Equal(t, []float64{2, 3}, r.Snapshot(2))
	assert.Equal(t, []float64{1, 2, 3}, r.Snapshot(10), "asking for more than held returns what is available")
}

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Push(float64(i))
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []float64{3, 4, 5}, r.Snapshot(-1))
	assert.Equal(t, []float64{5}, r.Snapshot(1))
}

func TestRing_LengthNeverExceedsCapacity(t *testing.T) {
	const capacity = 7
	r := NewRing(capacity)

	for i := range 100 {
		r.Push(float64(i))
		require.LessOrEqual(t, r.Len(), capacity)

		snap := r.Snapshot(-1)
		require.Len(t, snap, r.Len())

		// FIFO: the oldest retained sample is always i-len+1
		assert.Equal(t, float64(i-len(snap)+1), snap[0])
		assert.Equal(t, float64(i), snap[len(snap)-1])
	}
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	r := NewRing(3)
	r.Push(1)
	r.Push(2)

	snap := r.Snapshot(-1)
	snap[0] = 100

	assert.Equal(t, []float64{1, 2}, r.Snapshot(-1))

	r.Push(3)
	r.Push(4)
	assert.Equal(t, []float64{100, 2}, snap, "later pushes must not alter a taken snapshot")
}

func TestRing_Reset(t *testing.T) {
	r := NewRing(3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4)

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, r.Cap())

	r.Push(9)
	assert.Equal(t, []float64{9}, r.Snapshot(-1))
}
