//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"gopper-esc/core"
)

const (
	targetRPM = 6000
	batchSize = 16
	diagBaud  = 115200
	frameFIFO = 1024
)

// Board wiring
var (
	highPins  = [3]machine.Pin{machine.GPIO2, machine.GPIO3, machine.GPIO4}
	lowPins   = [3]machine.Pin{machine.GPIO6, machine.GPIO8, machine.GPIO10} // PWM3A, PWM4A, PWM5A
	sensePins = [3]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2}
	armPin    = machine.GPIO15 // pulled up, motor runs while grounded
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	core.SetDebugWriter(usbPrintln)
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	if err := InitDiagUART(diagBaud); err != nil {
		halt("diag uart: " + err.Error())
	}

	cfg := core.DefaultConfig()
	driver, err := newBridgeDriver(highPins, lowPins)
	if err != nil {
		halt("bridge: " + err.Error())
	}
	source := newADCSource(&cfg, sensePins, batchSize)

	ring := &core.TimingRing{}
	frames := core.NewFrameSink(frameFIFO)
	timer := &core.SoftCompare{}

	ctrl, err := core.NewController(cfg, core.Hardware{
		Source: source,
		Driver: driver,
		Clock:  hwClock{},
		Timer:  timer,
		Diag:   core.MultiSink{ring, frames},
	})
	if err != nil {
		halt("controller: " + err.Error())
	}
	timer.Handler = ctrl.OnCompare

	armPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	clock := hwClock{}
	latched := false  // a fault was seen; wait for disarm before restarting
	reported := false // the last fault has been dumped
	for {
		now := clock.Now()
		source.Poll(now)
		timer.Dispatch(now)
		ctrl.Poll()
		frames.Drain(diagUART)

		armed := !armPin.Get()
		switch {
		case !armed:
			if ctrl.Running() {
				ctrl.MotorOff()
			}
			latched = false
		case latched, ctrl.Running():
		default:
			if f := ctrl.Status().Fault; f != core.FaultNone && !reported {
				core.DebugPrintln("[ESC] fault: " + f.String())
				ring.Dump()
				reported = true
				latched = true
				continue
			}
			if err := ctrl.MotorOn(targetRPM); err != nil {
				core.DebugPrintln("[ESC] motor on: " + err.Error())
				latched = true
			}
			reported = false
		}
	}
}

// halt reports a boot failure and parks the core
func halt(msg string) {
	for {
		core.DebugPrintln("[ESC] " + msg)
		time.Sleep(time.Second)
	}
}
