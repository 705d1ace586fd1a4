//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"gopper-esc/core"
)

// RP2040/RP2350 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// hwClock reads the 1MHz system timer. Its low word wraps every ~71
// minutes, which core.Time arithmetic tolerates.
type hwClock struct{}

func (hwClock) Now() core.Time {
	return core.Time(timerRAWL.Get())
}
