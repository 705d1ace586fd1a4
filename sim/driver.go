package sim

import (
	"errors"

	"gopper-esc/core"
)

// ErrDriveMode is returned for switching schemes the simulated power stage
// does not implement.
var ErrDriveMode = errors.New("sim: unsupported drive mode")

// Driver is a simulated three-phase power stage. It records when every
// commutation happened.
type Driver struct {
	clock core.Clock
	drive Drive
	mode  core.DriveMode

	Commutations []core.Time
	Offs         int
}

// NewDriver creates a de-energized driver that timestamps commutations
// with clock.
func NewDriver(clock core.Clock) *Driver {
	return &Driver{clock: clock}
}

func (d *Driver) SetDutyCycle(dc float64) {
	switch {
	case dc < 0:
		dc = 0
	case dc > 1:
		dc = 1
	}
	d.drive.DutyCycle = dc
}

func (d *Driver) SetDriveMode(mode core.DriveMode) error {
	if mode != core.DriveLowSidePWM {
		return ErrDriveMode
	}
	d.mode = mode
	return nil
}

func (d *Driver) SetCommutation(s core.CommutationState) {
	d.drive.State = s
	d.drive.Energized = true
	d.Commutations = append(d.Commutations, d.clock.Now())
}

func (d *Driver) Commutation() core.CommutationState {
	return d.drive.State
}

func (d *Driver) Off() {
	d.drive.Energized = false
	d.drive.DutyCycle = 0
	d.Offs++
}

// Drive returns the current power stage output.
func (d *Driver) Drive() Drive {
	return d.drive
}
