package meter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastParams() Params {
	p := DefaultParams()
	p.StabilizationWindow = 90
	p.CalculationInterval = 1
	return p
}

// TestMeter_GracefulShutdown_NoCallbacksAfterClose tests that meter stops sending
// callbacks after the input channel is closed.
func TestMeter_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	m := New(fastParams())

	var (
		mu            sync.Mutex
		callbackCount int
	)
	m.OnUpdate(func(SignalData) {
		mu.Lock()
		callbackCount++
		mu.Unlock()
	})

	input := make(chan float64, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.ProcessSamples(input)
	}()

	for _, v := range ppg(72, 95, 30, 3, 0) {
		input <- v
	}
	close(input)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessSamples did not finish within timeout")
	}

	mu.Lock()
	initialCount := callbackCount
	mu.Unlock()
	assert.Equal(t, 6, initialCount)

	// Samples processed after shutdown do not notify
	m.ProcessSample(100)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, initialCount, callbackCount, "No callbacks should be sent after channel closes")
}

// TestMeter_ResetShutdown tests that ResetShutdown allows callbacks again.
func TestMeter_ResetShutdown(t *testing.T) {
	m := New(fastParams())

	var (
		mu            sync.Mutex
		callbackCount int
	)
	m.OnUpdate(func(SignalData) {
		mu.Lock()
		callbackCount++
		mu.Unlock()
	})

	run := func(x []float64) {
		input := make(chan float64, len(x))
		done := make(chan struct{})
		go func() {
			defer close(done)
			m.ProcessSamples(input)
		}()
		for _, v := range x {
			input <- v
		}
		close(input)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("ProcessSamples did not finish within timeout")
		}
	}

	run(ppg(72, 92, 30, 3, 0))
	mu.Lock()
	count1 := callbackCount
	mu.Unlock()

	m.ResetShutdown()
	run(ppg(72, 5, 30, 3, 0))

	mu.Lock()
	count2 := callbackCount
	mu.Unlock()

	assert.Equal(t, 3, count1)
	assert.Greater(t, count2, count1, "Callbacks should resume after ResetShutdown")
}
