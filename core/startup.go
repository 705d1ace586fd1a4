package core

// StartupState is the open-loop ramp phase.
type StartupState uint8

const (
	StartupGrab StartupState = iota
	StartupAccelerate
	StartupHold
	StartupFailed
)

func (s StartupState) String() string {
	switch s {
	case StartupGrab:
		return "grab"
	case StartupAccelerate:
		return "accelerate"
	case StartupHold:
		return "hold"
	case StartupFailed:
		return "failed"
	}
	return "unknown"
}

// StartupStep is what the sequencer wants done for the coming step.
type StartupStep struct {
	Delay     Duration // time until the next commutation
	DutyCycle float64
	Failed    bool
}

// Startup paces commutations before there is enough back-EMF to close the
// loop: grab, accelerate on a speed ramp, then hold at the final speed
// while the duty cycle decays.
type Startup struct {
	cfg *Config

	state     StartupState
	speed     float64 // commanded rpm
	dutyCycle float64
	steps     int // steps taken in the current state
}

// NewStartup creates a sequencer in the Grab state.
func NewStartup(cfg *Config) *Startup {
	s := &Startup{cfg: cfg}
	s.Reset()
	return s
}

// Reset returns to Grab.
func (s *Startup) Reset() {
	s.state = StartupGrab
	s.speed = s.cfg.InitialStartupSpeed
	s.dutyCycle = s.cfg.GrabDutyCycle
	s.steps = 0
}

// State returns the current ramp phase.
func (s *Startup) State() StartupState {
	return s.state
}

// Speed returns the commanded rpm.
func (s *Startup) Speed() float64 {
	return s.speed
}

// Steps returns how many steps were taken in the current state.
func (s *Startup) Steps() int {
	return s.steps
}

// TimePerStep returns the commutation period for a commanded rpm.
func (s *Startup) TimePerStep(speed float64) Duration {
	return PeriodFromRPM(s.cfg, speed)
}

// Begin starts the grab: the caller forces cfg.GrabState, applies the
// returned duty cycle and arms the compare after the returned delay.
func (s *Startup) Begin() StartupStep {
	s.Reset()
	return StartupStep{Delay: s.cfg.GrabTime, DutyCycle: s.dutyCycle}
}

// Step advances the ramp by one commutation.
func (s *Startup) Step() StartupStep {
	cfg := s.cfg
	switch s.state {
	case StartupGrab:
		s.state = StartupAccelerate
		s.steps = 0
		s.dutyCycle = cfg.StartupDutyCycle
		return StartupStep{Delay: s.TimePerStep(s.speed), DutyCycle: s.dutyCycle}

	case StartupAccelerate:
		s.steps++
		s.speed += cfg.StartupIncrement
		if s.speed >= cfg.FinalStartupSpeed {
			s.speed = cfg.FinalStartupSpeed
			s.state = StartupHold
			s.steps = 0
		}
		return StartupStep{Delay: s.TimePerStep(s.speed), DutyCycle: s.dutyCycle}

	case StartupHold:
		s.steps++
		if s.steps > cfg.HoldSteps {
			s.state = StartupFailed
			return StartupStep{Failed: true}
		}
		s.dutyCycle *= cfg.HoldDecay
		if s.dutyCycle < cfg.HoldFloorDutyCycle {
			s.dutyCycle = cfg.HoldFloorDutyCycle
		}
		return StartupStep{Delay: s.TimePerStep(cfg.FinalStartupSpeed), DutyCycle: s.dutyCycle}
	}
	return StartupStep{Failed: true}
}

// DutyCycle returns the duty the sequencer currently commands.
func (s *Startup) DutyCycle() float64 {
	return s.dutyCycle
}
