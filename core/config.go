package core

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned (wrapped) by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tuning constant of the commutation core. Durations are
// timer ticks (microseconds).
type Config struct {
	// Motor
	CommutationsPerRev int `yaml:"commutations_per_rev"` // six per electrical revolution times pole pairs

	// Acquisition
	Channels       int      `yaml:"channels"`        // channels per sample set in a batch
	PhaseChannels  [3]int   `yaml:"phase_channels"`  // batch channel index of phase A, B, C
	SampleInterval Duration `yaml:"sample_interval"` // ticks between consecutive sample sets

	// Sample classifier
	BlankingTime     Duration         `yaml:"blanking_time"`      // dead time after a commutation
	DriveOrderMargin int32            `yaml:"drive_order_margin"` // high must exceed low by this much
	NoiseCeiling     int32            `yaml:"noise_ceiling"`      // reject |diff| above this
	MinBelowSamples  int              `yaml:"min_below_samples"`  // hysteresis before arming
	ConfirmSamples   int              `yaml:"confirm_samples"`    // above-midpoint samples to confirm
	MidpointWeight   float64          `yaml:"midpoint_weight"`    // running-average weight of the old midpoint
	StateBias        [NumStates]int32 `yaml:"state_bias"`         // per-state calibration offset
	GrabState        CommutationState `yaml:"grab_state"`

	// Zero-crossing validator / period estimator
	SkipCeiling         int      `yaml:"skip_ceiling"`          // consecutive skips tolerated in closed loop
	ClosedLoopThreshold int      `yaml:"closed_loop_threshold"` // consecutive detections before closing the loop
	LatencyWeight       float64  `yaml:"latency_weight"`        // weight of the old per-state latency
	IntervalWeight      float64  `yaml:"interval_weight"`       // weight of the old smoothed interval
	MaxInterval         Duration `yaml:"max_interval"`          // sanity ceiling on a raw interval

	// Commutation scheduler
	PhaseAdvance          float64  `yaml:"phase_advance"`    // fraction of the interval from crossing to commutation
	MinLead               Duration `yaml:"min_lead"`         // targets closer than this are treated as late
	ImmediateOffset       Duration `yaml:"immediate_offset"` // lead used for a late target
	CorrectionNum         uint32   `yaml:"correction_num"`   // proportional correction toward the target
	CorrectionDen         uint32   `yaml:"correction_den"`
	FallbackMultiplier    uint32   `yaml:"fallback_multiplier"` // deadline after a detected step
	DegradedMultiplier    uint32   `yaml:"degraded_multiplier"` // deadline after a missed step
	JitterReportThreshold Duration `yaml:"jitter_report_threshold"`

	// Startup sequencer
	GrabDutyCycle       float64  `yaml:"grab_duty_cycle"`
	GrabTime            Duration `yaml:"grab_time"`
	StartupDutyCycle    float64  `yaml:"startup_duty_cycle"`
	InitialStartupSpeed float64  `yaml:"initial_startup_speed"` // rpm
	FinalStartupSpeed   float64  `yaml:"final_startup_speed"`   // rpm
	StartupIncrement    float64  `yaml:"startup_increment"`     // rpm per step
	HoldDecay           float64  `yaml:"hold_decay"`            // duty multiplier per hold step
	HoldFloorDutyCycle  float64  `yaml:"hold_floor_duty_cycle"`
	HoldSteps           int      `yaml:"hold_steps"`

	// Speed controller
	Kp          float64 `yaml:"kp"`
	Ki          float64 `yaml:"ki"`
	Kff         float64 `yaml:"kff"`
	Kff2        float64 `yaml:"kff2"`
	ILim        float64 `yaml:"ilim"`
	MaxDCChange float64 `yaml:"max_dc_change"`
	MinDC       float64 `yaml:"min_dc"`
	MaxDC       float64 `yaml:"max_dc"`
	StallLimit  int     `yaml:"stall_limit"` // missed speed updates before shutdown
}

// DefaultConfig returns the built-in tune for a 14-pole outrunner on a
// three-channel 1MHz ADC.
func DefaultConfig() Config {
	return Config{
		CommutationsPerRev: 42,

		Channels:       3,
		PhaseChannels:  [3]int{0, 1, 2},
		SampleInterval: 5,

		BlankingTime:     40,
		DriveOrderMargin: 400,
		NoiseCeiling:     1800,
		MinBelowSamples:  3,
		ConfirmSamples:   2,
		MidpointWeight:   0.7,
		GrabState:        StateAC,

		SkipCeiling:         50,
		ClosedLoopThreshold: 82,
		LatencyWeight:       0.9,
		IntervalWeight:      0.9,
		MaxInterval:         20000,

		PhaseAdvance:          0.45,
		MinLead:               5,
		ImmediateOffset:       10,
		CorrectionNum:         2,
		CorrectionDen:         2,
		FallbackMultiplier:    1,
		DegradedMultiplier:    7,
		JitterReportThreshold: 50,

		GrabDutyCycle:       0.12,
		GrabTime:            200000,
		StartupDutyCycle:    0.14,
		InitialStartupSpeed: 150,
		FinalStartupSpeed:   1000,
		StartupIncrement:    2,
		HoldDecay:           0.995,
		HoldFloorDutyCycle:  0.08,
		HoldSteps:           2000,

		Kp:          0.00002,
		Ki:          0.000002,
		Kff:         0.00009,
		Kff2:        0.02,
		ILim:        0.3,
		MaxDCChange: 0.01,
		MinDC:       0.05,
		MaxDC:       0.9,
		StallLimit:  3,
	}
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.CommutationsPerRev <= 0:
		return fmt.Errorf("%w: commutations_per_rev must be positive", ErrInvalidConfig)
	case c.Channels < 3:
		return fmt.Errorf("%w: need at least 3 channels, got %d", ErrInvalidConfig, c.Channels)
	case c.SampleInterval == 0:
		return fmt.Errorf("%w: sample_interval must be positive", ErrInvalidConfig)
	case c.MinBelowSamples < 1 || c.ConfirmSamples < 1:
		return fmt.Errorf("%w: hysteresis counts must be at least 1", ErrInvalidConfig)
	case !c.GrabState.Valid():
		return fmt.Errorf("%w: grab_state %d out of range", ErrInvalidConfig, c.GrabState)
	case c.CorrectionDen == 0:
		return fmt.Errorf("%w: correction_den must be positive", ErrInvalidConfig)
	case c.MaxInterval == 0:
		return fmt.Errorf("%w: max_interval must be positive", ErrInvalidConfig)
	case c.MinDC < 0 || c.MaxDC > 1 || c.MinDC > c.MaxDC:
		return fmt.Errorf("%w: duty range [%g, %g] is not within [0, 1]", ErrInvalidConfig, c.MinDC, c.MaxDC)
	case c.MaxDCChange <= 0:
		return fmt.Errorf("%w: max_dc_change must be positive", ErrInvalidConfig)
	case c.ILim < 0:
		return fmt.Errorf("%w: ilim must not be negative", ErrInvalidConfig)
	case c.InitialStartupSpeed <= 0 || c.FinalStartupSpeed < c.InitialStartupSpeed:
		return fmt.Errorf("%w: startup speeds %g..%g", ErrInvalidConfig, c.InitialStartupSpeed, c.FinalStartupSpeed)
	case c.StartupIncrement <= 0:
		return fmt.Errorf("%w: startup_increment must be positive", ErrInvalidConfig)
	case c.HoldSteps < 1:
		return fmt.Errorf("%w: hold_steps must be at least 1", ErrInvalidConfig)
	case c.SkipCeiling < 0 || c.ClosedLoopThreshold < 0 || c.StallLimit < 0:
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidConfig)
	}
	for i, ch := range c.PhaseChannels {
		if ch < 0 || ch >= c.Channels {
			return fmt.Errorf("%w: phase %s channel %d outside batch of %d", ErrInvalidConfig, Phase(i), ch, c.Channels)
		}
	}
	for name, w := range map[string]float64{
		"midpoint_weight": c.MidpointWeight,
		"latency_weight":  c.LatencyWeight,
		"interval_weight": c.IntervalWeight,
		"hold_decay":      c.HoldDecay,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s %g not within [0, 1]", ErrInvalidConfig, name, w)
		}
	}
	for name, dc := range map[string]float64{
		"grab_duty_cycle":       c.GrabDutyCycle,
		"startup_duty_cycle":    c.StartupDutyCycle,
		"hold_floor_duty_cycle": c.HoldFloorDutyCycle,
	} {
		if dc < c.MinDC || dc > c.MaxDC {
			return fmt.Errorf("%w: %s %g not within [%g, %g]", ErrInvalidConfig, name, dc, c.MinDC, c.MaxDC)
		}
	}
	return nil
}
