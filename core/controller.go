package core

// Sensorless commutation controller.
// The sample and compare interrupts feed the main loop through a one-slot
// crossing mailbox and a commutated edge; everything else runs in Poll.

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var (
	ErrMotorRunning = errors.New("motor already running")
	ErrNoDriver     = errors.New("hardware collaborator not configured")
)

// FaultReason records why the core shut the motor down.
type FaultReason uint32

const (
	FaultNone FaultReason = iota
	FaultSkipCeiling
	FaultUpdateStall
	FaultStartupFailed
)

func (f FaultReason) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultSkipCeiling:
		return "detection lost"
	case FaultUpdateStall:
		return "speed update stalled"
	case FaultStartupFailed:
		return "startup failed"
	}
	return "unknown"
}

// Status is a main-loop snapshot of the controller.
type Status struct {
	Running    bool
	State      CommutationState
	Startup    StartupState
	ClosedLoop bool

	DutyCycle  float64
	DesiredRPM float64
	RPM        float64

	Detection  DetectionStats
	Classifier ClassifierStats

	Overruns          uint32
	Collisions        uint32
	ConsistencyErrors uint32
	LateTargets       uint32
	Misses            uint32
	Stalls            uint32

	Fault FaultReason
}

// Controller is the commutation core for one motor.
type Controller struct {
	cfg  Config
	hw   Hardware
	diag DiagSink

	running atomic.Bool
	armedAt atomic.Uint32
	stalls  atomic.Uint32
	tripped atomic.Uint32 // FaultReason raised in interrupt context

	classifier *Classifier
	crossing   crossingSlot
	advancer   Advancer
	estimator  *PeriodEstimator
	validator  *Validator
	scheduler  *Scheduler
	startup    *Startup
	speed      *SpeedController

	stateFn          func() CommutationState
	lastCommutFn     func() Time
	desiredRPM       float64
	detectedThisStep bool
	scheduleNext     bool
	misses           uint32
	lastFault        FaultReason
}

// NewController validates cfg and binds the controller to hw. The motor
// stays off until MotorOn.
func NewController(cfg Config, hw Hardware) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case hw.Source == nil:
		return nil, fmt.Errorf("%w: sample source", ErrNoDriver)
	case hw.Driver == nil:
		return nil, fmt.Errorf("%w: phase driver", ErrNoDriver)
	case hw.Clock == nil:
		return nil, fmt.Errorf("%w: clock", ErrNoDriver)
	case hw.Timer == nil:
		return nil, fmt.Errorf("%w: compare timer", ErrNoDriver)
	}

	c := &Controller{cfg: cfg, hw: hw, diag: hw.Diag}
	if c.diag == nil {
		c.diag = discardSink{}
	}
	c.classifier = NewClassifier(&c.cfg)
	c.estimator = NewPeriodEstimator(&c.cfg, c.initialInterval())
	c.validator = NewValidator(&c.cfg, c.estimator)
	c.scheduler = NewScheduler(&c.cfg)
	c.startup = NewStartup(&c.cfg)
	c.speed = NewSpeedController(&c.cfg, 0)
	c.stateFn = c.advancer.State
	c.lastCommutFn = c.advancer.LastCommutation
	c.reset()
	return c, nil
}

// Config returns the tune the controller runs with.
func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) initialInterval() Duration {
	return PeriodFromRPM(&c.cfg, c.cfg.FinalStartupSpeed)
}

// reset returns every piece of session state to its power-on value.
func (c *Controller) reset() {
	c.armedAt.Store(0)
	c.stalls.Store(0)
	c.tripped.Store(0)

	c.classifier.Reset()
	c.crossing.reset()
	c.advancer.reset(c.cfg.GrabState)
	c.estimator.Reset(c.initialInterval())
	c.validator.Reset()
	c.scheduler.Reset()
	c.startup.Reset()
	c.speed.Reset(0)

	c.desiredRPM = 0
	c.detectedThisStep = false
	c.scheduleNext = false
	c.misses = 0
}

// MotorOn starts a session: grab, open-loop ramp, then closed loop once
// detection is established.
func (c *Controller) MotorOn(desiredRPM float64) error {
	if c.running.Load() {
		return ErrMotorRunning
	}
	c.reset()
	c.lastFault = FaultNone
	c.SetDesiredRPM(desiredRPM)

	if err := c.hw.Driver.SetDriveMode(DriveLowSidePWM); err != nil {
		return fmt.Errorf("set drive mode: %w", err)
	}

	step := c.startup.Begin()
	now := c.hw.Clock.Now()
	c.advancer.Force(c.cfg.GrabState, now, c.hw.Driver)
	c.hw.Driver.SetDutyCycle(step.DutyCycle)
	c.speed.Reset(step.DutyCycle)

	c.running.Store(true)
	c.arm(now.Add(step.Delay))

	if err := c.hw.Source.Start(c.OnSamples); err != nil {
		c.MotorOff()
		return fmt.Errorf("start sampling: %w", err)
	}
	DebugPrintln("[ESC] motor on, grab " + c.cfg.GrabState.String())
	return nil
}

// MotorOff de-energizes the motor and resets all session state. Calling it
// when already off only repeats the reset.
func (c *Controller) MotorOff() {
	if c.running.CompareAndSwap(true, false) {
		c.releaseHardware()
	}
	c.reset()
}

func (c *Controller) releaseHardware() {
	c.hw.Timer.Disable()
	c.hw.Driver.Off()
	c.hw.Source.Stop()
}

// trip shuts the hardware down from interrupt context and leaves the
// reason for the main loop to finish the reset.
func (c *Controller) trip(reason FaultReason) {
	if c.running.CompareAndSwap(true, false) {
		c.releaseHardware()
		c.tripped.Store(uint32(reason))
		DebugAsync("[ESC] trip: " + reason.String())
	}
}

// shutdown is the main-loop fault path.
func (c *Controller) shutdown(reason FaultReason) {
	c.lastFault = reason
	DebugPrintln("[ESC] shutdown: " + reason.String())
	c.MotorOff()
}

// Running reports whether a motor-on session is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// SetDesiredRPM sets the closed-loop speed target. Negative values are
// treated as zero.
func (c *Controller) SetDesiredRPM(rpm float64) {
	if rpm < 0 || math.IsNaN(rpm) {
		rpm = 0
	}
	c.desiredRPM = rpm
}

// OnSamples is the sample-acquisition interrupt entry point.
func (c *Controller) OnSamples(b *SampleBatch) {
	if !c.running.Load() {
		return
	}
	ev, ok := c.classifier.Classify(b, c.stateFn, c.lastCommutFn)
	if !ok {
		return
	}
	if c.crossing.post(ev) {
		c.report(AnomalyCrossingOverrun, c.crossing.overruns.Load(), uint32(ev.State))
	}
}

// OnCompare is the commutation timer interrupt entry point.
func (c *Controller) OnCompare() {
	if !c.running.Load() {
		return
	}
	now := c.hw.Clock.Now()
	next, busy := c.advancer.Advance(now, c.hw.Driver)
	if busy {
		c.report(AnomalyCommutationBusy, c.advancer.Collisions(), uint32(next))
	}

	armed := Time(c.armedAt.Load())
	if now.After(armed) {
		if late := now.Sub(armed); late > c.cfg.JitterReportThreshold {
			c.report(AnomalyCommutationJitter, uint32(late), uint32(c.advancer.LastElapsed()))
		}
	}

	if !c.validator.ClosedLoop() {
		return
	}
	if c.speed.takeUpdated() {
		c.stalls.Store(0)
		return
	}
	n := c.stalls.Add(1)
	if int(n) > c.cfg.StallLimit {
		c.report(AnomalyUpdateStall, n, 0)
		c.trip(FaultUpdateStall)
	}
}

// Poll is one main-loop iteration. A pending commutation is handled before
// a pending crossing, so a crossing from a step that has already ended is
// judged against the new state: it is dropped as stale and the ended step
// counts as a miss.
func (c *Controller) Poll() {
	if reason := FaultReason(c.tripped.Swap(0)); reason != FaultNone {
		c.shutdown(reason)
		return
	}
	if !c.running.Load() {
		return
	}
	if c.advancer.takeCommutated() {
		c.handleCommutation()
		if !c.running.Load() {
			return
		}
	}
	if ev, ok := c.crossing.take(); ok {
		c.handleCrossing(ev)
	}
}

func (c *Controller) handleCommutation() {
	hadDetection := c.detectedThisStep
	c.detectedThisStep = false

	if !hadDetection {
		c.misses++
		if c.validator.Miss() {
			c.report(AnomalySkipCeiling, uint32(c.estimator.Stats.ConsecutiveSkipped), uint32(c.advancer.State()))
			c.shutdown(FaultSkipCeiling)
			return
		}
	}

	last := c.advancer.LastCommutation()
	if c.validator.ClosedLoop() {
		c.scheduleNext = hadDetection
		c.arm(c.scheduler.Fallback(last, c.estimator.Smoothed(), c.scheduleNext))
		c.runSpeed()
		return
	}

	step := c.startup.Step()
	if step.Failed {
		c.report(AnomalyStartupFailed, uint32(c.startup.Steps()), uint32(c.startup.DutyCycle()*1000))
		c.shutdown(FaultStartupFailed)
		return
	}
	c.hw.Driver.SetDutyCycle(step.DutyCycle)
	c.speed.Reset(step.DutyCycle)
	c.arm(last.Add(step.Delay))
}

func (c *Controller) handleCrossing(ev ZeroCrossingEvent) {
	current := c.advancer.State()
	last := c.advancer.LastCommutation()

	v := c.validator.Validate(ev, current, last)
	if !v.Accepted {
		c.report(AnomalyStaleCrossing, uint32(ev.State), uint32(current))
		return
	}
	c.detectedThisStep = true

	if v.Fault {
		c.report(AnomalySkipCeiling, uint32(c.estimator.Stats.ConsecutiveSkipped), uint32(current))
		c.shutdown(FaultSkipCeiling)
		return
	}
	if v.Latched {
		DebugPrintln("[ESC] closed loop at " + utoa(uint32(c.estimator.Smoothed())) + "us")
		c.runSpeed()
	}
	if !c.validator.ClosedLoop() {
		return
	}

	now := c.hw.Clock.Now()
	at, late := c.scheduler.ClosedLoop(ev, c.estimator.Stats.SmoothedInterval, last, now)
	if late {
		behind := -c.scheduler.LastLead()
		if behind < 0 {
			behind = 0
		}
		c.report(AnomalyLateTarget, uint32(behind), uint32(c.estimator.Smoothed()))
	}
	c.arm(at)
}

func (c *Controller) runSpeed() {
	dc := c.speed.Update(c.desiredRPM, c.estimator.RPM())
	c.hw.Driver.SetDutyCycle(dc)
}

func (c *Controller) arm(at Time) {
	c.armedAt.Store(uint32(at))
	c.hw.Timer.Arm(at)
}

func (c *Controller) report(kind AnomalyKind, v1, v2 uint32) {
	c.diag.Report(Anomaly{Kind: kind, Time: c.hw.Clock.Now(), Value1: v1, Value2: v2})
}

// Status returns a snapshot for diagnostics. Call it from the main loop.
func (c *Controller) Status() Status {
	return Status{
		Running:    c.running.Load(),
		State:      c.advancer.State(),
		Startup:    c.startup.State(),
		ClosedLoop: c.validator.ClosedLoop(),

		DutyCycle:  c.speed.DutyCycle(),
		DesiredRPM: c.desiredRPM,
		RPM:        c.estimator.RPM(),

		Detection:  c.estimator.Stats,
		Classifier: c.classifier.Stats,

		Overruns:          c.crossing.overruns.Load(),
		Collisions:        c.advancer.Collisions(),
		ConsistencyErrors: c.validator.ConsistencyErrors,
		LateTargets:       c.scheduler.LateTargets,
		Misses:            c.misses,
		Stalls:            c.stalls.Load(),

		Fault: c.lastFault,
	}
}
