package core

import "sync/atomic"

// Verdict is the outcome of validating one crossing.
type Verdict struct {
	Accepted bool // event state matched the live commutation state
	Skipped  bool // predecessor was not the expected one
	Fault    bool // skip ceiling exceeded while closed loop
	Latched  bool // this event closed the loop
}

// Validator checks provisional crossings against the drive order and keeps
// the hit/miss streaks that decide when the loop may close.
type Validator struct {
	cfg *Config
	est *PeriodEstimator

	lastState CommutationState

	// closedLoop is read by the commutation interrupt.
	closedLoop atomic.Bool

	ConsistencyErrors uint32
}

// NewValidator creates a validator feeding est.
func NewValidator(cfg *Config, est *PeriodEstimator) *Validator {
	v := &Validator{cfg: cfg, est: est}
	v.Reset()
	return v
}

// Reset drops the streaks and opens the loop. The expected predecessor of
// the grab state is assumed so the first crossing after startup is clean.
func (v *Validator) Reset() {
	v.lastState = v.cfg.GrabState.Predecessor()
	v.closedLoop.Store(false)
	v.ConsistencyErrors = 0
}

// ClosedLoop reports whether detection confidence has been established.
func (v *Validator) ClosedLoop() bool {
	return v.closedLoop.Load()
}

// Validate processes ev given the live commutation state and the time that
// state was entered.
func (v *Validator) Validate(ev ZeroCrossingEvent, current CommutationState, lastCommutation Time) Verdict {
	if ev.State != current {
		v.ConsistencyErrors++
		return Verdict{}
	}

	st := &v.est.Stats
	verdict := Verdict{Accepted: true}
	verdict.Skipped = v.lastState != current.Predecessor()
	v.lastState = ev.State

	if verdict.Skipped {
		st.ConsecutiveSkipped++
		st.ConsecutiveDetected = 0
	} else {
		st.ConsecutiveDetected++
		st.ConsecutiveSkipped = 0
	}

	if v.ClosedLoop() && st.ConsecutiveSkipped > v.cfg.SkipCeiling {
		verdict.Fault = true
		return verdict
	}

	v.est.Observe(ev, verdict.Skipped, lastCommutation)

	if !v.ClosedLoop() && st.ConsecutiveDetected > v.cfg.ClosedLoopThreshold {
		v.closedLoop.Store(true)
		verdict.Latched = true
	}
	return verdict
}

// Miss accounts for a commutation step that ended without a validated
// crossing. It reports whether the skip ceiling was exceeded in closed loop.
func (v *Validator) Miss() bool {
	st := &v.est.Stats
	st.ConsecutiveSkipped++
	st.ConsecutiveDetected = 0
	v.est.MarkMissed()
	return v.ClosedLoop() && st.ConsecutiveSkipped > v.cfg.SkipCeiling
}
