package core

// SoftCompare is a CompareTimer serviced by polling. It holds one armed
// wake time; Dispatch runs Handler once the time is reached, the way the
// firmware timer list dispatches due timers.
type SoftCompare struct {
	WakeTime Time
	Handler  func()

	armed bool
	fired uint32
}

// Arm schedules the compare, replacing any previously armed value.
func (t *SoftCompare) Arm(at Time) {
	state := disableInterrupts()
	t.WakeTime = at
	t.armed = true
	restoreInterrupts(state)
}

// Disable cancels the armed compare.
func (t *SoftCompare) Disable() {
	state := disableInterrupts()
	t.armed = false
	restoreInterrupts(state)
}

// Armed returns the pending wake time, if any.
func (t *SoftCompare) Armed() (Time, bool) {
	return t.WakeTime, t.armed
}

// Fired returns how many times the handler ran.
func (t *SoftCompare) Fired() uint32 {
	return t.fired
}

// Dispatch fires the handler if the armed time is due at now. The compare
// is disarmed before the handler runs so the handler may re-arm it.
func (t *SoftCompare) Dispatch(now Time) bool {
	state := disableInterrupts()
	due := t.armed && !t.WakeTime.After(now)
	if due {
		t.armed = false
	}
	restoreInterrupts(state)

	if !due {
		return false
	}
	t.fired++
	if t.Handler != nil {
		t.Handler()
	}
	return true
}
