package core

import (
	"math"
	"sync/atomic"
)

// SpeedController is the PI-plus-feedforward loop that maps rpm error to a
// duty cycle.
type SpeedController struct {
	cfg *Config

	dutyCycle float64
	integral  float64

	// updated is set on every Update and cleared by the stall watchdog in
	// the commutation interrupt.
	updated atomic.Bool
}

// NewSpeedController creates a controller holding duty cycle dc.
func NewSpeedController(cfg *Config, dc float64) *SpeedController {
	return &SpeedController{cfg: cfg, dutyCycle: dc}
}

// Reset clears the integral and sets the held duty cycle.
func (s *SpeedController) Reset(dc float64) {
	s.dutyCycle = dc
	s.integral = 0
	s.updated.Store(false)
}

// DutyCycle returns the last commanded duty cycle.
func (s *SpeedController) DutyCycle() float64 {
	return s.dutyCycle
}

// Integral returns the integral accumulator.
func (s *SpeedController) Integral() float64 {
	return s.integral
}

// Update runs one control cycle and returns the new duty cycle.
func (s *SpeedController) Update(desiredRPM, measuredRPM float64) float64 {
	cfg := s.cfg
	err := desiredRPM - measuredRPM
	if math.IsNaN(err) {
		err = 0
	}

	s.integral += cfg.Ki * err
	s.integral = clamp(s.integral, -cfg.ILim, cfg.ILim)

	candidate := desiredRPM*cfg.Kff - cfg.Kff2 + cfg.Kp*err + s.integral
	if math.IsNaN(candidate) {
		candidate = s.dutyCycle
	}

	dc := clamp(candidate, s.dutyCycle-cfg.MaxDCChange, s.dutyCycle+cfg.MaxDCChange)
	s.dutyCycle = clamp(dc, cfg.MinDC, cfg.MaxDC)

	s.updated.Store(true)
	return s.dutyCycle
}

// takeUpdated reports and clears the closed-loop-updated flag.
func (s *SpeedController) takeUpdated() bool {
	return s.updated.Swap(false)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
