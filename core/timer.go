package core

import "sync/atomic"

// Time is a reading of the free-running microsecond counter. It wraps at
// 2^32; ordering is only meaningful between readings less than half a wrap
// apart.
type Time uint32

// Duration is a non-negative span of microseconds on the same counter.
type Duration uint32

const (
	// TimerFreq is the commutation timer rate (1MHz, one tick per microsecond)
	TimerFreq = 1000000

	// halfWrap bounds the span over which two Times can be ordered
	halfWrap = 1 << 31
)

// Sub returns the elapsed ticks from u to t modulo the counter width.
// The result is always non-negative; if u is actually after t the result
// is the long way around the wrap.
func (t Time) Sub(u Time) Duration {
	return Duration(uint32(t) - uint32(u))
}

// Add returns t advanced by d, wrapping.
func (t Time) Add(d Duration) Time {
	return Time(uint32(t) + uint32(d))
}

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool {
	d := uint32(t) - uint32(u)
	return d != 0 && d < halfWrap
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool {
	return u.After(t)
}

// Until returns the signed lead from now to t: positive when t is in the
// future, negative when it has already passed.
func (t Time) Until(now Time) int32 {
	return int32(uint32(t) - uint32(now))
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) Duration {
	return Duration(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(d Duration) uint32 {
	return uint32(uint64(d) * 1000000 / TimerFreq)
}

// TickClock is a Clock whose counter is pushed in by the target, the way
// the firmware main loop copies the hardware timer into the core.
type TickClock struct {
	ticks atomic.Uint32
}

// Now returns the last stored counter value.
func (c *TickClock) Now() Time {
	return Time(c.ticks.Load())
}

// Set stores the current counter value (for testing/hardware integration)
func (c *TickClock) Set(t Time) {
	c.ticks.Store(uint32(t))
}

// Advance moves the counter forward by d.
func (c *TickClock) Advance(d Duration) Time {
	return Time(c.ticks.Add(uint32(d)))
}
