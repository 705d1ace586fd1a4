//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"gopper-esc/core"
)

// pwmPeriodNS is the low-side chopping period (25kHz)
const pwmPeriodNS = 40000

var errUnsupportedMode = errors.New("unsupported drive mode")

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// lowSide is one chopped low-side gate
type lowSide struct {
	pwm     pwmPeripheral
	channel uint8
}

// bridgeDriver drives a three-phase half-bridge. High-side gates are plain
// GPIO outputs, low-side gates are hardware PWM channels on separate slices.
type bridgeDriver struct {
	high [3]machine.Pin
	low  [3]lowSide

	state core.CommutationState
	duty  float64
	on    bool
}

// newBridgeDriver configures the gate pins. Each low-side pin must sit on
// its own PWM slice.
func newBridgeDriver(high, low [3]machine.Pin) (*bridgeDriver, error) {
	d := &bridgeDriver{high: high}
	for _, pin := range high {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
	}
	for i, pin := range low {
		pwm := pwmForPin(pin)
		if err := pwm.Configure(machine.PWMConfig{Period: pwmPeriodNS}); err != nil {
			return nil, err
		}
		ch, err := pwm.Channel(pin)
		if err != nil {
			return nil, err
		}
		pwm.Set(ch, 0)
		d.low[i] = lowSide{pwm: pwm, channel: ch}
	}
	return d, nil
}

func (d *bridgeDriver) SetDutyCycle(dc float64) {
	if dc < 0 {
		dc = 0
	} else if dc > 1 {
		dc = 1
	}
	d.duty = dc
	if d.on {
		l := d.low[d.state.LowPhase()]
		l.pwm.Set(l.channel, d.dutyCount(l.pwm))
	}
}

func (d *bridgeDriver) SetDriveMode(mode core.DriveMode) error {
	if mode != core.DriveLowSidePWM {
		return errUnsupportedMode
	}
	return nil
}

// SetCommutation opens every gate before closing the new pair, so the two
// switches of one leg are never on together.
func (d *bridgeDriver) SetCommutation(s core.CommutationState) {
	d.allOff()
	d.state = s
	d.on = true
	d.high[s.HighPhase()].High()
	l := d.low[s.LowPhase()]
	l.pwm.Set(l.channel, d.dutyCount(l.pwm))
}

func (d *bridgeDriver) Commutation() core.CommutationState {
	return d.state
}

func (d *bridgeDriver) Off() {
	d.allOff()
	d.on = false
}

func (d *bridgeDriver) allOff() {
	for i := range d.high {
		d.high[i].Low()
		d.low[i].pwm.Set(d.low[i].channel, 0)
	}
}

func (d *bridgeDriver) dutyCount(pwm pwmPeripheral) uint32 {
	return uint32(d.duty * float64(pwm.Top()))
}

// pwmForPin returns the PWM slice of a GPIO.
// RP2040: GPIO N maps to slice (N >> 1) & 0x7
func pwmForPin(pin machine.Pin) pwmPeripheral {
	switch (uint8(pin) >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
