package sim

import (
	"fmt"

	"gopper-esc/core"
)

// BatchSize is the number of sample sets per simulated DMA transfer.
const BatchSize = 16

// observeEvery is how often Run snapshots controller status.
const observeEvery core.Duration = 1000

// Bench runs a Controller against a simulated motor. Each tick of Run
// takes one sample set, services the compare timer and runs one main-loop
// iteration, in that order.
type Bench struct {
	Motor  *Motor
	Driver *Driver
	Source *Source
	Clock  *core.TickClock
	Timer  *core.SoftCompare
	Ring   *core.TimingRing
	Counts *Counter
	Ctrl   *core.Controller

	cfg       core.Config
	polePairs int

	started     core.Time
	lastObserve core.Time
	closedAt    core.Time
	closed      bool
	rpm         []float64
	last        core.Status // last snapshot taken while running
}

// NewBench wires a controller to a simulated motor built from p. Extra
// diagnostic sinks receive every anomaly alongside the bench's own ring
// and counter.
func NewBench(cfg core.Config, p MotorParams, extra ...core.DiagSink) (*Bench, error) {
	if cfg.CommutationsPerRev%core.NumStates != 0 {
		return nil, fmt.Errorf("%w: commutations_per_rev %d is not a multiple of %d",
			core.ErrInvalidConfig, cfg.CommutationsPerRev, core.NumStates)
	}
	if p.Inertia <= 0 || p.Resistance <= 0 {
		return nil, fmt.Errorf("sim: inertia and resistance must be positive")
	}

	b := &Bench{
		Motor:     NewMotor(p),
		Clock:     &core.TickClock{},
		Timer:     &core.SoftCompare{},
		Ring:      &core.TimingRing{},
		Counts:    &Counter{},
		cfg:       cfg,
		polePairs: cfg.CommutationsPerRev / core.NumStates,
	}
	b.Driver = NewDriver(b.Clock)
	b.Source = NewSource(&b.cfg, BatchSize)

	diag := core.MultiSink{b.Ring, b.Counts}
	diag = append(diag, extra...)

	ctrl, err := core.NewController(cfg, core.Hardware{
		Source: b.Source,
		Driver: b.Driver,
		Clock:  b.Clock,
		Timer:  b.Timer,
		Diag:   diag,
	})
	if err != nil {
		return nil, err
	}
	b.Ctrl = ctrl
	b.Timer.Handler = ctrl.OnCompare
	return b, nil
}

// PolePairs returns the motor's pole pair count.
func (b *Bench) PolePairs() int {
	return b.polePairs
}

// Start turns the motor on with the given speed target.
func (b *Bench) Start(rpm float64) error {
	b.started = b.Clock.Now()
	b.lastObserve = b.started
	b.closed = false
	b.rpm = b.rpm[:0]
	b.last = core.Status{}
	b.Driver.Commutations = b.Driver.Commutations[:0]
	return b.Ctrl.MotorOn(rpm)
}

// Stop turns the motor off.
func (b *Bench) Stop() {
	b.Ctrl.MotorOff()
}

// Run advances the simulation by d ticks.
func (b *Bench) Run(d core.Duration) {
	step := b.cfg.SampleInterval
	dt := float64(step) / core.TimerFreq
	end := b.Clock.Now().Add(d)

	for b.Clock.Now().Before(end) {
		now := b.Clock.Advance(step)
		drive := b.Driver.Drive()
		b.Motor.Step(dt, drive)

		v := b.Motor.PhaseVoltages(drive, b.Motor.PWMOn(now, drive.DutyCycle))
		b.Source.Add(now, b.Motor.Counts(v))
		b.Timer.Dispatch(now)
		b.Ctrl.Poll()

		if now.Sub(b.lastObserve) >= observeEvery {
			b.observe(now)
		}
	}
}

func (b *Bench) observe(now core.Time) {
	b.lastObserve = now
	st := b.Ctrl.Status()
	if st.Running {
		b.last = st
	}
	if st.ClosedLoop && !b.closed {
		b.closed = true
		b.closedAt = now
	}
	if b.closed && st.Running {
		b.rpm = append(b.rpm, b.Motor.RPM(b.polePairs))
	}
}
