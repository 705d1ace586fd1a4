// Package sim models a sensorless outrunner closely enough to exercise the
// commutation core on a host: a rotor with inertia and load, six-step
// torque, back-EMF on the floating phase and low-side PWM chopping.
//
// Angles are electrical radians. The model is not meant to predict a real
// motor, only to produce sample streams with the right shape and timing.
package sim

import (
	"math"
	"math/rand"

	"gopper-esc/core"
)

// MotorParams describes the simulated motor and its sense network.
type MotorParams struct {
	SupplyVolts   float64       `yaml:"supply_volts"`
	Resistance    float64       `yaml:"resistance"`      // phase to phase, ohms
	Ke            float64       `yaml:"ke"`              // volts per electrical rad/s
	Inertia       float64       `yaml:"inertia"`         // referred to the electrical angle
	Damping       float64       `yaml:"damping"`         // viscous load
	Drag          float64       `yaml:"drag"`            // load proportional to speed squared
	Friction      float64       `yaml:"friction"`        // coulomb load
	SenseLag      float64       `yaml:"sense_lag"`       // degrees the sensed crossing trails the torque peak
	InitialAngle  float64       `yaml:"initial_angle"`   // degrees
	PWMPeriod     core.Duration `yaml:"pwm_period"`      // ticks
	CountsPerVolt float64       `yaml:"counts_per_volt"` // ADC scale after the divider
	NoiseCounts   float64       `yaml:"noise_counts"`    // ADC noise standard deviation
	Seed          int64         `yaml:"seed"`
}

// DefaultMotorParams returns a small 12V outrunner on a 12-bit ADC.
func DefaultMotorParams() MotorParams {
	return MotorParams{
		SupplyVolts:   12,
		Resistance:    0.2,
		Ke:            0.00114,
		Inertia:       2e-7,
		Damping:       2e-7,
		Drag:          4.5e-10,
		Friction:      0.0002,
		SenseLag:      75,
		PWMPeriod:     40,
		CountsPerVolt: 310,
		NoiseCounts:   8,
		Seed:          1,
	}
}

// adcMax is the 12-bit converter full scale.
const adcMax = 4095

// Drive is what the power stage is doing to the windings.
type Drive struct {
	State     core.CommutationState
	DutyCycle float64
	Energized bool
}

// Motor is the rotor state plus the noise source for the sense lines.
type Motor struct {
	p     MotorParams
	theta float64
	omega float64
	rng   *rand.Rand
}

// NewMotor creates a motor at rest at p.InitialAngle.
func NewMotor(p MotorParams) *Motor {
	return &Motor{
		p:     p,
		theta: p.InitialAngle * math.Pi / 180,
		rng:   rand.New(rand.NewSource(p.Seed)),
	}
}

// Speed returns the electrical angular velocity in rad/s.
func (m *Motor) Speed() float64 {
	return m.omega
}

// SetState places the rotor.
func (m *Motor) SetState(theta, omega float64) {
	m.theta = theta
	m.omega = omega
}

// RPM returns the mechanical speed for a motor with polePairs pole pairs.
func (m *Motor) RPM(polePairs int) float64 {
	if polePairs <= 0 {
		return 0
	}
	return m.omega / (2 * math.Pi) * 60 / float64(polePairs)
}

// stateCenter is the electrical angle of peak torque for s.
func stateCenter(s core.CommutationState) float64 {
	return float64(s.Index()) * math.Pi / 3
}

// Torque returns the electromagnetic torque produced by d at the current
// rotor position.
func (m *Motor) Torque(d Drive) float64 {
	if !d.Energized {
		return 0
	}
	p := &m.p
	c := math.Cos(m.theta - stateCenter(d.State))
	current := (d.DutyCycle*p.SupplyVolts - p.Ke*m.omega*c) / p.Resistance
	if current < 0 {
		// Low-side chopping cannot drive current backwards through the pair.
		current = 0
	}
	return p.Ke * current * c
}

// Step integrates the rotor over dt seconds.
func (m *Motor) Step(dt float64, d Drive) {
	p := &m.p
	torque := m.Torque(d) - p.Damping*m.omega - p.Drag*m.omega*math.Abs(m.omega)

	switch {
	case m.omega == 0 && math.Abs(torque) <= p.Friction:
		return
	case m.omega > 0 || (m.omega == 0 && torque > 0):
		torque -= p.Friction
	default:
		torque += p.Friction
	}

	next := m.omega + torque/p.Inertia*dt
	if (m.omega > 0 && next < 0) || (m.omega < 0 && next > 0) {
		next = 0
	}
	m.omega = next
	m.theta += m.omega * dt
}

// PhaseVoltages returns the A, B, C sense voltages for d. pwmOn reports
// whether the low-side switch is closed at the sampling instant.
func (m *Motor) PhaseVoltages(d Drive, pwmOn bool) [3]float64 {
	var v [3]float64
	if !d.Energized {
		return v
	}
	p := &m.p
	ph := core.PhasesOf(d.State)

	// Floating-phase back-EMF relative to the star point.
	emf := 0.5 * p.Ke * m.omega * math.Sin(m.theta-stateCenter(d.State)-p.SenseLag*math.Pi/180)
	if !ph.Polarity {
		emf = -emf
	}

	if !pwmOn {
		// Low switch open: the pair freewheels up to the supply.
		v[ph.High] = p.SupplyVolts
		v[ph.Low] = p.SupplyVolts
		v[ph.Undriven] = p.SupplyVolts + emf
		return v
	}
	v[ph.High] = p.SupplyVolts
	v[ph.Low] = 0
	v[ph.Undriven] = p.SupplyVolts/2 + emf
	return v
}

// Counts converts sense voltages to noisy ADC readings.
func (m *Motor) Counts(v [3]float64) [3]core.ADCValue {
	var out [3]core.ADCValue
	for i, volts := range v {
		c := volts*m.p.CountsPerVolt + m.rng.NormFloat64()*m.p.NoiseCounts
		switch {
		case c < 0:
			c = 0
		case c > adcMax:
			c = adcMax
		}
		out[i] = core.ADCValue(c + 0.5)
	}
	return out
}

// PWMOn reports whether the low switch is closed at now for duty dc.
func (m *Motor) PWMOn(now core.Time, dc float64) bool {
	period := uint32(m.p.PWMPeriod)
	if period == 0 {
		return dc > 0
	}
	phase := uint32(now) % period
	return float64(phase) < dc*float64(period)
}
