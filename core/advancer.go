package core

import "sync/atomic"

// Advancer steps the six-step sequence from the compare interrupt. It is
// the only writer of the commutation state; other contexts read it through
// State.
type Advancer struct {
	state           atomic.Uint32
	lastCommutation atomic.Uint32
	commutated      edgeFlag

	lastElapsed  Duration
	commutations uint32
}

// State returns the live commutation state.
func (a *Advancer) State() CommutationState {
	return CommutationState(a.state.Load())
}

// LastCommutation returns when the live state was entered.
func (a *Advancer) LastCommutation() Time {
	return Time(a.lastCommutation.Load())
}

// LastElapsed returns the length of the step that ended at the last
// commutation.
func (a *Advancer) LastElapsed() Duration {
	return a.lastElapsed
}

// Advance moves to the successor state at now and drives it. It reports
// whether the previous commutation was still unprocessed by the main loop.
func (a *Advancer) Advance(now Time, driver PhaseDriver) (next CommutationState, busy bool) {
	a.lastElapsed = now.Sub(a.LastCommutation())
	next = a.State().Successor()
	a.state.Store(uint32(next))
	a.lastCommutation.Store(uint32(now))
	driver.SetCommutation(next)
	a.commutations++
	return next, a.commutated.raise()
}

// Force drives s without signalling a commutation. Used for the grab.
func (a *Advancer) Force(s CommutationState, now Time, driver PhaseDriver) {
	a.state.Store(uint32(s))
	a.lastCommutation.Store(uint32(now))
	driver.SetCommutation(s)
}

// takeCommutated consumes the commutated edge.
func (a *Advancer) takeCommutated() bool {
	return a.commutated.clear()
}

// Collisions returns how many commutations fired before the previous one
// was processed.
func (a *Advancer) Collisions() uint32 {
	return a.commutated.collisions.Load()
}

func (a *Advancer) reset(s CommutationState) {
	a.state.Store(uint32(s))
	a.lastCommutation.Store(0)
	a.commutated.reset()
	a.lastElapsed = 0
	a.commutations = 0
}
