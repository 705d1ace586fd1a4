package core

// Scheduler computes the compare value for the next commutation, either
// from a validated crossing or from the period estimate alone.
type Scheduler struct {
	cfg *Config

	LateTargets uint32
	lastLead    int32
}

// NewScheduler creates a scheduler with cfg's phase advance and fallback
// multipliers.
func NewScheduler(cfg *Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Reset clears the counters.
func (s *Scheduler) Reset() {
	s.LateTargets = 0
	s.lastLead = 0
}

// ClosedLoop returns the commutation time following crossing ev. When the
// advanced target is already due (less than MinLead ahead of now) it returns
// a near-term time instead and reports late.
func (s *Scheduler) ClosedLoop(ev ZeroCrossingEvent, smoothed float64, lastCommutation, now Time) (at Time, late bool) {
	cfg := s.cfg
	target := ev.Time.Add(Duration(smoothed*cfg.PhaseAdvance + 0.5))

	s.lastLead = target.Until(now)
	if s.lastLead < int32(cfg.MinLead) {
		s.LateTargets++
		return now.Add(cfg.ImmediateOffset), true
	}

	// Move from the last commutation toward the target by Num/Den of the gap.
	span := uint64(target.Sub(lastCommutation))
	return lastCommutation.Add(Duration(span * uint64(cfg.CorrectionNum) / uint64(cfg.CorrectionDen))), false
}

// Fallback returns the deadline used when no crossing has been validated
// yet in the current step. scheduleNext selects the one-period deadline;
// otherwise the longer degraded deadline applies.
func (s *Scheduler) Fallback(lastCommutation Time, smoothed Duration, scheduleNext bool) Time {
	m := s.cfg.DegradedMultiplier
	if scheduleNext {
		m = s.cfg.FallbackMultiplier
	}
	return lastCommutation.Add(smoothed * Duration(m))
}

// LastLead returns how far ahead of now the last closed-loop target was;
// negative when it had already passed.
func (s *Scheduler) LastLead() int32 {
	return s.lastLead
}
