package core

// ClassifierStats counts how samples were disposed of. It is written in
// interrupt context; read it from the main loop only for diagnostics.
type ClassifierStats struct {
	Batches    uint32
	Rejected   uint32 // driven phases out of order (PWM off)
	Noisy      uint32 // difference above the noise ceiling
	Blanked    uint32 // crossing inside the blanking window
	Rearms     uint32
	Detections uint32
}

// Classifier turns raw back-EMF samples into provisional zero crossings.
// It runs entirely in the sample interrupt: no allocation, one pass over
// the batch.
type Classifier struct {
	cfg *Config

	armedState CommutationState
	armed      bool
	detected   bool

	below     int  // consecutive-enough samples under the midpoint
	above     int  // confirming samples over the midpoint
	candidate Time // first sample over the midpoint, possibly in an earlier batch

	midpoint      float64
	midpointValid bool

	Stats ClassifierStats
}

// NewClassifier creates a classifier using cfg's acquisition and
// hysteresis settings.
func NewClassifier(cfg *Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Rearm clears detection state for a new commutation state.
func (c *Classifier) Rearm(s CommutationState) {
	c.armedState = s
	c.armed = true
	c.detected = false
	c.below = 0
	c.above = 0
	c.candidate = 0
	c.Stats.Rearms++
}

// Reset returns the classifier to its power-on state.
func (c *Classifier) Reset() {
	*c = Classifier{cfg: c.cfg}
}

// Classify scans one batch. state returns the live commutation state and is
// re-read for every sample so a commutation landing mid-batch re-arms the
// hysteresis. lastCommutation is when the current state was entered.
func (c *Classifier) Classify(b *SampleBatch, state func() CommutationState, lastCommutation func() Time) (ZeroCrossingEvent, bool) {
	cfg := c.cfg
	c.Stats.Batches++

	n := b.Len()
	for i := 0; i < n; i++ {
		s := state()
		if !c.armed || s != c.armedState {
			c.Rearm(s)
		}
		if c.detected {
			continue
		}

		ph := PhasesOf(s)
		hi := int32(b.At(i, cfg.PhaseChannels[ph.High]))
		lo := int32(b.At(i, cfg.PhaseChannels[ph.Low]))
		un := int32(b.At(i, cfg.PhaseChannels[ph.Undriven]))

		// Low-side PWM: the high phase must sit above the low phase, which
		// only holds while the low switch is on.
		if hi-lo < cfg.DriveOrderMargin {
			c.Stats.Rejected++
			continue
		}

		mid := float64(hi+lo) / 2
		if c.midpointValid {
			w := cfg.MidpointWeight
			c.midpoint = w*c.midpoint + (1-w)*mid
		} else {
			c.midpoint = mid
			c.midpointValid = true
		}

		diff := un - int32(c.midpoint+0.5)
		if !ph.Polarity {
			diff = -diff
		}
		diff += cfg.StateBias[s]

		if diff > cfg.NoiseCeiling || diff < -cfg.NoiseCeiling {
			c.Stats.Noisy++
			continue
		}

		if diff < 0 {
			c.above = 0
			c.candidate = 0
			c.below++
			continue
		}

		if c.below < cfg.MinBelowSamples {
			continue
		}
		if c.above == 0 {
			c.candidate = b.Start.Add(Duration(i) * cfg.SampleInterval)
		}
		c.above++
		if c.above < cfg.ConfirmSamples {
			continue
		}

		t := c.candidate
		if t.Before(lastCommutation().Add(cfg.BlankingTime)) {
			c.Stats.Blanked++
			c.below = 0
			c.above = 0
			c.candidate = 0
			continue
		}

		c.detected = true
		c.Stats.Detections++
		return ZeroCrossingEvent{State: s, Time: t}, true
	}
	return ZeroCrossingEvent{}, false
}
