package meter

// Tracker declares a reading stable once consecutive estimates agree.
//
// An estimate agrees when it is within threshold of the previous one. The
// reading is stable once the agreeing run, counting the estimate that started
// it, reaches required. The previous estimate is replaced on every call.
type Tracker struct {
	threshold int
	required  int

	last      *int
	agreement int
	stable    bool
}

// NewTracker creates an unstable tracker.
func NewTracker(threshold, required int) *Tracker {
	return &Tracker{threshold: threshold, required: required}
}

// Observe feeds one estimate. entered is true only on the transition from
// unstable to stable.
func (t *Tracker) Observe(bpm int) (stable, entered bool) {
	if t.last == nil || abs(bpm-*t.last) > t.threshold {
		t.agreement = 0
	} else {
		t.agreement++
	}

	b := bpm
	t.last = &b

	was := t.stable
	t.stable = t.agreement+1 >= t.required
	return t.stable, t.stable && !was
}

// Clear forgets the previous estimate and leaves the stable state.
func (t *Tracker) Clear() {
	t.last = nil
	t.agreement = 0
	t.stable = false
}

// LastBPM returns the previous estimate, nil if there is none.
func (t *Tracker) LastBPM() *int {
	if t.last == nil {
		return nil
	}
	b := *t.last
	return &b
}

// Agreement returns the number of consecutive agreeing estimates.
func (t *Tracker) Agreement() int {
	return t.agreement
}

// Stable reports whether the tracker is in the stable state.
func (t *Tracker) Stable() bool {
	return t.stable
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
