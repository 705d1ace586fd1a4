package core

// ADCValue is the raw ADC reading as seen by the rest of the firmware.
type ADCValue uint16

// SampleBatch is one acquisition cycle delivered by the ADC driver. Raw is
// interleaved: sample i of channel ch lives at Raw[i*Channels+ch]. Start is
// the capture time of the first sample.
type SampleBatch struct {
	Start    Time
	Channels int
	Raw      []ADCValue
}

// Len returns the number of complete sample sets in the batch.
func (b *SampleBatch) Len() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Raw) / b.Channels
}

// At returns the reading of channel ch for sample i.
func (b *SampleBatch) At(i, ch int) ADCValue {
	return b.Raw[i*b.Channels+ch]
}

// SampleSource delivers a SampleBatch once per acquisition period. The
// handler runs in interrupt context and must not retain the batch.
type SampleSource interface {
	// Start begins acquisition, invoking handler for every completed batch.
	Start(handler func(*SampleBatch)) error

	// Stop halts acquisition. Calling Stop when stopped is a no-op.
	Stop()
}

// DriveMode selects how the phase driver switches the active pair.
type DriveMode uint8

const (
	// DriveLowSidePWM holds the high side on and chops the low side
	DriveLowSidePWM DriveMode = iota
)

// PhaseDriver energizes the motor windings. Implementations clamp the duty
// cycle to their own safe range.
type PhaseDriver interface {
	// SetDutyCycle sets the PWM duty cycle as a fraction 0..1
	SetDutyCycle(dc float64)

	// SetDriveMode selects the switching scheme
	SetDriveMode(mode DriveMode) error

	// SetCommutation drives the pair selected by s
	SetCommutation(s CommutationState)

	// Commutation returns the state currently driven
	Commutation() CommutationState

	// Off de-energizes all phases immediately
	Off()
}

// Clock is the monotonic microsecond counter.
type Clock interface {
	Now() Time
}

// CompareTimer arms the single commutation compare interrupt.
type CompareTimer interface {
	// Arm schedules the compare event at the given time, replacing any
	// previously armed value.
	Arm(at Time)

	// Disable cancels the armed compare and masks the interrupt.
	Disable()
}

// DiagSink receives anomaly reports. Report must never block; sinks drop
// records they cannot accept.
type DiagSink interface {
	Report(a Anomaly)
}

// Hardware bundles the collaborators a Controller drives.
type Hardware struct {
	Source SampleSource
	Driver PhaseDriver
	Clock  Clock
	Timer  CompareTimer
	Diag   DiagSink // optional
}
