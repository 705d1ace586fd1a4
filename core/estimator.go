package core

// DetectionStats is the running state of zero-crossing detection.
type DetectionStats struct {
	ConsecutiveSkipped  int
	ConsecutiveDetected int

	// Interval is the raw time between the last two accepted crossings.
	Interval Duration

	// SmoothedInterval is the filtered commutation period in ticks. It only
	// moves on plausible intervals.
	SmoothedInterval float64

	// PerStateLatency is the filtered time from entering a state to seeing
	// its crossing.
	PerStateLatency [NumStates]float64
}

// PeriodEstimator maintains the smoothed commutation period and per-state
// latency from accepted crossings.
type PeriodEstimator struct {
	cfg   *Config
	Stats DetectionStats

	lastTime    Time
	haveLast    bool
	prevSkipped bool
}

// NewPeriodEstimator creates an estimator seeded with initial as the
// smoothed interval.
func NewPeriodEstimator(cfg *Config, initial Duration) *PeriodEstimator {
	p := &PeriodEstimator{cfg: cfg}
	p.Reset(initial)
	return p
}

// Reset clears all history and seeds the smoothed interval.
func (p *PeriodEstimator) Reset(initial Duration) {
	p.Stats = DetectionStats{SmoothedInterval: float64(initial)}
	p.lastTime = 0
	p.haveLast = false
	p.prevSkipped = true
}

// Observe folds an accepted crossing into the estimates. lastCommutation is
// when the crossing's state was entered.
func (p *PeriodEstimator) Observe(ev ZeroCrossingEvent, skipped bool, lastCommutation Time) {
	cfg := p.cfg
	st := &p.Stats

	latency := float64(ev.Time.Sub(lastCommutation))
	if st.PerStateLatency[ev.State] == 0 {
		st.PerStateLatency[ev.State] = latency
	} else {
		w := cfg.LatencyWeight
		st.PerStateLatency[ev.State] = w*st.PerStateLatency[ev.State] + (1-w)*latency
	}

	if p.haveLast {
		st.Interval = ev.Time.Sub(p.lastTime)
		if !skipped && !p.prevSkipped && st.Interval < cfg.MaxInterval {
			w := cfg.IntervalWeight
			st.SmoothedInterval = w*st.SmoothedInterval + (1-w)*float64(st.Interval)
		}
	}

	p.lastTime = ev.Time
	p.haveLast = true
	p.prevSkipped = skipped
}

// MarkMissed records a step with no crossing so the next interval, which
// spans more than one step, is not folded in.
func (p *PeriodEstimator) MarkMissed() {
	p.prevSkipped = true
}

// Smoothed returns the smoothed interval rounded to whole ticks.
func (p *PeriodEstimator) Smoothed() Duration {
	return Duration(p.Stats.SmoothedInterval + 0.5)
}

// RPM converts the smoothed interval to mechanical revolutions per minute.
func (p *PeriodEstimator) RPM() float64 {
	return RPMFromPeriod(p.cfg, p.Stats.SmoothedInterval)
}

// RPMFromPeriod converts a commutation period in ticks to rpm.
func RPMFromPeriod(cfg *Config, period float64) float64 {
	if period <= 0 {
		return 0
	}
	return 60 * TimerFreq / (period * float64(cfg.CommutationsPerRev))
}

// PeriodFromRPM converts rpm to a commutation period in ticks.
func PeriodFromRPM(cfg *Config, rpm float64) Duration {
	if rpm <= 0 {
		return 0
	}
	return Duration(60*TimerFreq/(rpm*float64(cfg.CommutationsPerRev)) + 0.5)
}
