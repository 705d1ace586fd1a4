package core

import "sync/atomic"

// ZeroCrossingEvent is a provisional crossing handed from the sample
// interrupt to the main loop.
type ZeroCrossingEvent struct {
	State CommutationState
	Time  Time
}

// crossingSlot is a single-producer/single-consumer mailbox. The sample
// interrupt is the only writer of event and the only setter of full; the
// main loop is the only reader of event and the only clearer of full.
type crossingSlot struct {
	event    ZeroCrossingEvent
	full     atomic.Bool
	overruns atomic.Uint32
}

// post publishes ev. If the previous event was never taken it is
// overwritten and counted as an overrun; post reports whether that happened.
func (s *crossingSlot) post(ev ZeroCrossingEvent) bool {
	overrun := s.full.Load()
	if overrun {
		s.overruns.Add(1)
	}
	s.event = ev
	s.full.Store(true)
	return overrun
}

// take hands the pending event to the consumer and marks it consumed before
// the caller processes it.
func (s *crossingSlot) take() (ZeroCrossingEvent, bool) {
	if !s.full.Load() {
		return ZeroCrossingEvent{}, false
	}
	state := disableInterrupts()
	ev := s.event
	s.full.Store(false)
	restoreInterrupts(state)
	return ev, true
}

// pending reports whether an unconsumed event is waiting.
func (s *crossingSlot) pending() bool {
	return s.full.Load()
}

func (s *crossingSlot) reset() {
	s.full.Store(false)
	s.event = ZeroCrossingEvent{}
	s.overruns.Store(0)
}

// edgeFlag is a one-bit signal set in interrupt context and cleared by the
// main loop. Setting an already-set flag counts a collision.
type edgeFlag struct {
	set        atomic.Bool
	collisions atomic.Uint32
}

// raise sets the flag and reports whether it was still set from before.
func (f *edgeFlag) raise() bool {
	if f.set.Swap(true) {
		f.collisions.Add(1)
		return true
	}
	return false
}

// clear consumes the flag, reporting whether it was set.
func (f *edgeFlag) clear() bool {
	return f.set.Swap(false)
}

func (f *edgeFlag) reset() {
	f.set.Store(false)
	f.collisions.Store(0)
}
