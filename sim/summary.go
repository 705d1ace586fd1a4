package sim

import (
	"gonum.org/v1/gonum/stat"

	"gopper-esc/core"
)

// maxKinds bounds the anomaly kinds a Counter tracks.
const maxKinds = 16

// Counter is a DiagSink that counts anomalies by kind.
type Counter struct {
	counts [maxKinds]uint32
}

func (c *Counter) Report(a core.Anomaly) {
	if int(a.Kind) < maxKinds {
		c.counts[a.Kind]++
	}
}

// Count returns how many anomalies of kind k were reported.
func (c *Counter) Count(k core.AnomalyKind) uint32 {
	if int(k) >= maxKinds {
		return 0
	}
	return c.counts[k]
}

// Summary describes one bench run.
type Summary struct {
	Elapsed      core.Duration
	Commutations int
	ClosedLoop   bool
	ClosedLoopAt core.Duration // from Start

	// Commutation interval statistics after the loop closed, in ticks.
	IntervalMean   float64
	IntervalStdDev float64

	// Rotor speed statistics after the loop closed, mechanical rpm.
	RPMMean   float64
	RPMStdDev float64

	MotorRPM     float64 // true final speed
	EstimatedRPM float64 // the controller's final estimate

	Anomalies map[string]uint32
	Status    core.Status
}

// Summary collects the statistics of the run so far. Once the motor is off
// the controller has reset its counters, so Status is the last snapshot
// taken while it ran, carrying the fault that stopped it.
func (b *Bench) Summary() Summary {
	st := b.Ctrl.Status()
	if !st.Running && b.last.Running {
		fault := st.Fault
		st = b.last
		st.Running = false
		st.Fault = fault
	}
	s := Summary{
		Elapsed:      b.Clock.Now().Sub(b.started),
		Commutations: len(b.Driver.Commutations),
		ClosedLoop:   b.closed,
		MotorRPM:     b.Motor.RPM(b.polePairs),
		EstimatedRPM: st.RPM,
		Anomalies:    make(map[string]uint32),
		Status:       st,
	}
	if b.closed {
		s.ClosedLoopAt = b.closedAt.Sub(b.started)
		s.IntervalMean, s.IntervalStdDev = MeanStdDev(intervalsAfter(b.Driver.Commutations, b.closedAt))
		s.RPMMean, s.RPMStdDev = MeanStdDev(b.rpm)
	}
	for k := core.AnomalyStaleCrossing; k <= core.AnomalyCommutationJitter; k++ {
		if n := b.Counts.Count(k); n > 0 {
			s.Anomalies[k.String()] = n
		}
	}
	return s
}

// MeanStdDev returns the mean and sample standard deviation of xs. Fewer
// than two samples have no spread.
func MeanStdDev(xs []float64) (mean, std float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

// intervalsAfter returns the gaps between consecutive commutations at or
// after from.
func intervalsAfter(times []core.Time, from core.Time) []float64 {
	var out []float64
	for i := 1; i < len(times); i++ {
		if times[i-1].Before(from) {
			continue
		}
		out = append(out, float64(times[i].Sub(times[i-1])))
	}
	return out
}
