package core

import "testing"

func TestClassifierDetectsCrossing(t *testing.T) {
	cfg := DefaultConfig()

	for s := CommutationState(0); s < NumStates; s++ {
		t.Run(s.String(), func(t *testing.T) {
			c := NewClassifier(&cfg)
			b := crossingBatch(&cfg, s, 10000, 16, 8)

			ev, ok := c.Classify(b, fixedState(s), fixedTime(5000))
			if !ok {
				t.Fatalf("no crossing detected, stats %+v", c.Stats)
			}
			want := Time(10000).Add(8 * cfg.SampleInterval)
			if ev.State != s || ev.Time != want {
				t.Errorf("event = %+v, expected state %s at %d", ev, s, want)
			}
			if !c.detected {
				t.Error("classifier should be latched after a detection")
			}
		})
	}
}

func TestClassifierCrossingSplitAcrossBatches(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	// Only the last sample of the first batch is above the midpoint, so the
	// confirmation lands in the next batch.
	if _, ok := c.Classify(crossingBatch(&cfg, StateAC, 10000, 16, 15), fixedState(StateAC), fixedTime(5000)); ok {
		t.Fatal("single sample above the midpoint should not confirm")
	}
	ev, ok := c.Classify(crossingBatch(&cfg, StateAC, 10080, 16, 0), fixedState(StateAC), fixedTime(5000))
	if !ok {
		t.Fatalf("crossing not confirmed in the second batch, stats %+v", c.Stats)
	}
	want := Time(10000).Add(15 * cfg.SampleInterval)
	if ev.Time != want {
		t.Errorf("crossing at %d, expected the first sample above at %d", ev.Time, want)
	}
}

func TestClassifierOneCrossingPerState(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	if _, ok := c.Classify(crossingBatch(&cfg, StateAC, 10000, 16, 8), fixedState(StateAC), fixedTime(0)); !ok {
		t.Fatal("first crossing not detected")
	}
	if _, ok := c.Classify(crossingBatch(&cfg, StateAC, 10080, 16, 8), fixedState(StateAC), fixedTime(0)); ok {
		t.Error("second crossing in the same state should be ignored")
	}

	ev, ok := c.Classify(crossingBatch(&cfg, StateCA, 10160, 16, 8), fixedState(StateCA), fixedTime(10150))
	if !ok || ev.State != StateCA {
		t.Errorf("crossing after state change: event %+v, ok %v", ev, ok)
	}
}

func TestClassifierBlanking(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	// Crossing lands 10 ticks after the commutation, inside the 40 tick window.
	crossing := Time(10000).Add(8 * cfg.SampleInterval)
	_, ok := c.Classify(crossingBatch(&cfg, StateAB, 10000, 16, 8), fixedState(StateAB), fixedTime(crossing-10))
	if ok {
		t.Fatal("crossing inside the blanking window should be discarded")
	}
	if c.Stats.Blanked != 1 {
		t.Errorf("expected 1 blanked sample, got %d", c.Stats.Blanked)
	}
}

func TestClassifierRejectsPWMOff(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	b := &SampleBatch{Start: 0, Channels: 3, Raw: make([]ADCValue, 10*3)}
	for i := range b.Raw {
		b.Raw[i] = 1500
	}
	if _, ok := c.Classify(b, fixedState(StateBC), fixedTime(0)); ok {
		t.Error("samples with the low switch off should never detect")
	}
	if c.Stats.Rejected != 10 {
		t.Errorf("expected 10 rejected samples, got %d", c.Stats.Rejected)
	}
}

func TestClassifierNoiseCeiling(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	b := crossingBatch(&cfg, StateCA, 0, 12, 4)
	// Undriven phase pinned far above the midpoint.
	for i := 0; i < b.Len(); i++ {
		b.Raw[i*cfg.Channels+cfg.PhaseChannels[PhaseB]] = 4000
	}
	if _, ok := c.Classify(b, fixedState(StateCA), fixedTime(0)); ok {
		t.Error("samples above the noise ceiling should not detect")
	}
	if c.Stats.Noisy != 12 {
		t.Errorf("expected 12 noisy samples, got %d", c.Stats.Noisy)
	}
}

func TestClassifierHysteresis(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	// Only two samples below the midpoint: not enough to arm.
	if _, ok := c.Classify(crossingBatch(&cfg, StateBA, 0, 10, 2), fixedState(StateBA), fixedTime(0)); ok {
		t.Error("crossing without enough below-midpoint samples should not detect")
	}
}

func TestClassifierRearmsMidBatch(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClassifier(&cfg)

	calls := 0
	state := func() CommutationState {
		calls++
		if calls > 5 {
			return StateCA
		}
		return StateAC
	}
	c.Classify(crossingBatch(&cfg, StateAC, 0, 10, 9), state, fixedTime(0))
	if c.Stats.Rearms != 2 {
		t.Errorf("expected 2 re-arms (initial + mid-batch), got %d", c.Stats.Rearms)
	}
	if calls != 10 {
		t.Errorf("state should be read once per sample, read %d times", calls)
	}
}
