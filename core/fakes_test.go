package core

import "errors"

// fakeDriver records everything the controller asks of the power stage.
type fakeDriver struct {
	dutyCycle float64
	state     CommutationState
	history   []CommutationState
	mode      DriveMode
	modeErr   error
	offs      int
}

func (d *fakeDriver) SetDutyCycle(dc float64) { d.dutyCycle = dc }

func (d *fakeDriver) SetDriveMode(mode DriveMode) error {
	if d.modeErr != nil {
		return d.modeErr
	}
	d.mode = mode
	return nil
}

func (d *fakeDriver) SetCommutation(s CommutationState) {
	d.state = s
	d.history = append(d.history, s)
}

func (d *fakeDriver) Commutation() CommutationState { return d.state }

func (d *fakeDriver) Off() { d.offs++ }

// fakeSource hands the controller's handler back to the test.
type fakeSource struct {
	handler  func(*SampleBatch)
	startErr error
	starts   int
	stops    int
}

func (s *fakeSource) Start(handler func(*SampleBatch)) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.handler = handler
	s.starts++
	return nil
}

func (s *fakeSource) Stop() { s.stops++ }

type fakeTimer struct {
	at       Time
	armed    bool
	arms     int
	disables int
}

func (t *fakeTimer) Arm(at Time) {
	t.at = at
	t.armed = true
	t.arms++
}

func (t *fakeTimer) Disable() {
	t.armed = false
	t.disables++
}

// recordSink keeps every anomaly reported.
type recordSink struct {
	anomalies []Anomaly
}

func (r *recordSink) Report(a Anomaly) { r.anomalies = append(r.anomalies, a) }

func (r *recordSink) count(kind AnomalyKind) int {
	n := 0
	for _, a := range r.anomalies {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordSink) last(kind AnomalyKind) (Anomaly, bool) {
	for i := len(r.anomalies) - 1; i >= 0; i-- {
		if r.anomalies[i].Kind == kind {
			return r.anomalies[i], true
		}
	}
	return Anomaly{}, false
}

var errFake = errors.New("fake failure")

// testBench wires a controller to fakes.
type testBench struct {
	cfg    Config
	clock  *TickClock
	driver *fakeDriver
	source *fakeSource
	timer  *fakeTimer
	diag   *recordSink
	ctrl   *Controller
}

func newTestBench(cfg Config) (*testBench, error) {
	b := &testBench{
		cfg:    cfg,
		clock:  &TickClock{},
		driver: &fakeDriver{},
		source: &fakeSource{},
		timer:  &fakeTimer{},
		diag:   &recordSink{},
	}
	b.clock.Set(1000)
	ctrl, err := NewController(cfg, Hardware{
		Source: b.source,
		Driver: b.driver,
		Clock:  b.clock,
		Timer:  b.timer,
		Diag:   b.diag,
	})
	if err != nil {
		return nil, err
	}
	b.ctrl = ctrl
	return b, nil
}

// crossing posts a detected crossing at offset ticks into the current
// step and runs the main loop 20 ticks later.
func (b *testBench) crossing(s CommutationState, offset Duration) ZeroCrossingEvent {
	ev := ZeroCrossingEvent{State: s, Time: b.ctrl.advancer.LastCommutation().Add(offset)}
	b.clock.Set(ev.Time.Add(20))
	b.ctrl.crossing.post(ev)
	b.ctrl.Poll()
	return ev
}

// commutate fires the compare interrupt period ticks after the last
// commutation and runs the main loop.
func (b *testBench) commutate(period Duration) {
	b.clock.Set(b.ctrl.advancer.LastCommutation().Add(period))
	b.ctrl.OnCompare()
	b.ctrl.Poll()
}

// runToClosedLoop starts the motor and feeds one clean crossing per step
// until the loop closes. It returns the number of crossings fed.
func (b *testBench) runToClosedLoop(limit int) int {
	for i := 1; i <= limit; i++ {
		if i > 1 {
			b.commutate(1000)
		}
		b.crossing(b.ctrl.advancer.State(), 200)
		if b.ctrl.Status().ClosedLoop {
			return i
		}
	}
	return -1
}

// crossingBatch synthesizes n sample sets for state s whose back-EMF
// crosses the midpoint at sample crossAt.
func crossingBatch(cfg *Config, s CommutationState, start Time, n, crossAt int) *SampleBatch {
	ph := PhasesOf(s)
	b := &SampleBatch{Start: start, Channels: cfg.Channels, Raw: make([]ADCValue, n*cfg.Channels)}
	for i := 0; i < n; i++ {
		before, after := ADCValue(1000), ADCValue(2000)
		if !ph.Polarity {
			before, after = after, before
		}
		un := before
		if i >= crossAt {
			un = after
		}
		b.Raw[i*cfg.Channels+cfg.PhaseChannels[ph.High]] = 3000
		b.Raw[i*cfg.Channels+cfg.PhaseChannels[ph.Low]] = 0
		b.Raw[i*cfg.Channels+cfg.PhaseChannels[ph.Undriven]] = un
	}
	return b
}

func fixedState(s CommutationState) func() CommutationState {
	return func() CommutationState { return s }
}

func fixedTime(t Time) func() Time {
	return func() Time { return t }
}
