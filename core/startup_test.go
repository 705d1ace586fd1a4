package core

import (
	"math"
	"testing"
)

func TestStartupRamp(t *testing.T) {
	cfg := DefaultConfig()
	s := NewStartup(&cfg)

	step := s.Begin()
	if step.Delay != cfg.GrabTime || step.DutyCycle != cfg.GrabDutyCycle {
		t.Errorf("grab step = %+v", step)
	}
	if s.State() != StartupGrab {
		t.Fatalf("state after Begin = %s", s.State())
	}

	step = s.Step()
	if s.State() != StartupAccelerate {
		t.Fatalf("state after grab = %s", s.State())
	}
	if step.Delay != PeriodFromRPM(&cfg, cfg.InitialStartupSpeed) {
		t.Errorf("first accelerate delay %d, expected %d", step.Delay, PeriodFromRPM(&cfg, cfg.InitialStartupSpeed))
	}
	if step.DutyCycle != cfg.StartupDutyCycle {
		t.Errorf("accelerate duty %f, expected %f", step.DutyCycle, cfg.StartupDutyCycle)
	}

	accel := 0
	prevDelay := step.Delay
	for s.State() == StartupAccelerate {
		step = s.Step()
		accel++
		if step.Delay > prevDelay {
			t.Fatalf("step %d: delay grew from %d to %d", accel, prevDelay, step.Delay)
		}
		prevDelay = step.Delay
		if accel > 10000 {
			t.Fatal("ramp never finished")
		}
	}
	if accel != 425 {
		t.Errorf("ramp took %d steps, expected 425", accel)
	}
	if s.State() != StartupHold || s.Speed() != cfg.FinalStartupSpeed {
		t.Errorf("after ramp: state %s speed %f", s.State(), s.Speed())
	}
	if step.Delay != PeriodFromRPM(&cfg, cfg.FinalStartupSpeed) {
		t.Errorf("final delay %d, expected %d", step.Delay, PeriodFromRPM(&cfg, cfg.FinalStartupSpeed))
	}
}

func TestStartupHoldDecay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialStartupSpeed = 990
	cfg.StartupIncrement = 10
	cfg.HoldSteps = 200
	s := NewStartup(&cfg)
	s.Begin()
	s.Step()
	s.Step()
	if s.State() != StartupHold {
		t.Fatalf("expected hold, got %s", s.State())
	}

	step := s.Step()
	want := cfg.StartupDutyCycle * cfg.HoldDecay
	if math.Abs(step.DutyCycle-want) > 1e-12 {
		t.Errorf("first hold duty %f, expected %f", step.DutyCycle, want)
	}

	prev := step.DutyCycle
	for i := 2; i <= cfg.HoldSteps; i++ {
		step = s.Step()
		if step.Failed {
			t.Fatalf("failed early at hold step %d", i)
		}
		if step.DutyCycle > prev || step.DutyCycle < cfg.HoldFloorDutyCycle {
			t.Fatalf("hold step %d: duty %f (previous %f)", i, step.DutyCycle, prev)
		}
		prev = step.DutyCycle
	}
	if prev != cfg.HoldFloorDutyCycle {
		t.Errorf("duty should reach the floor, got %f", prev)
	}

	if step = s.Step(); !step.Failed || s.State() != StartupFailed {
		t.Errorf("expected failure after %d hold steps, got %+v in %s", cfg.HoldSteps, step, s.State())
	}
	if step = s.Step(); !step.Failed {
		t.Error("failed sequencer should keep reporting failure")
	}
}
