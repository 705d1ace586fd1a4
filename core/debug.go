package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// AnomalyKind classifies a diagnostic record.
type AnomalyKind uint8

// Anomaly kinds. Value1/Value2 meaning is listed per kind.
const (
	AnomalyNone              AnomalyKind = iota
	AnomalyStaleCrossing                 // v1=event state, v2=current state
	AnomalyCrossingOverrun               // v1=overrun count, v2=state
	AnomalyCommutationBusy               // v1=collision count, v2=state
	AnomalyLateTarget                    // v1=ticks late, v2=smoothed interval
	AnomalySkipCeiling                   // v1=consecutive skipped, v2=state
	AnomalyUpdateStall                   // v1=stall count, v2=0
	AnomalyStartupFailed                 // v1=hold steps, v2=duty in 1/1000
	AnomalyCommutationJitter             // v1=ticks late, v2=elapsed since previous commutation
)

func (k AnomalyKind) String() string {
	switch k {
	case AnomalyStaleCrossing:
		return "STALE_ZC"
	case AnomalyCrossingOverrun:
		return "ZC_OVERRUN"
	case AnomalyCommutationBusy:
		return "COMM_BUSY"
	case AnomalyLateTarget:
		return "LATE_TARGET!"
	case AnomalySkipCeiling:
		return "SKIP_CEILING"
	case AnomalyUpdateStall:
		return "UPDATE_STALL"
	case AnomalyStartupFailed:
		return "STARTUP_FAIL"
	case AnomalyCommutationJitter:
		return "JITTER"
	}
	return "UNKNOWN"
}

// Anomaly captures a timing-critical event for post-mortem analysis
type Anomaly struct {
	Kind   AnomalyKind
	Time   Time
	Value1 uint32
	Value2 uint32
}

const (
	TimingRingSize = 32 // Keep last 32 anomalies for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go func() {
		for msg := range debugChan {
			if debugPrintln != nil {
				debugPrintln(msg)
			}
		}
	}()
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from interrupt context; use DebugAsync there.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// TimingRing is a DiagSink that keeps the most recent anomalies. Report is
// a fixed-cost store and is safe from interrupt context.
type TimingRing struct {
	ring    [TimingRingSize]Anomaly
	head    uint8
	dropped uint32
}

// Report records a in the ring, overwriting the oldest entry.
func (r *TimingRing) Report(a Anomaly) {
	state := disableInterrupts()
	if r.ring[r.head].Kind != AnomalyNone {
		r.dropped++
	}
	r.ring[r.head] = a
	r.head = (r.head + 1) % TimingRingSize
	restoreInterrupts(state)
}

// Snapshot returns the recorded anomalies oldest first.
func (r *TimingRing) Snapshot() []Anomaly {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	out := make([]Anomaly, 0, TimingRingSize)
	for i := uint8(0); i < TimingRingSize; i++ {
		a := r.ring[(r.head+i)%TimingRingSize]
		if a.Kind == AnomalyNone {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Overwritten returns how many records were pushed out of the ring.
func (r *TimingRing) Overwritten() uint32 {
	return r.dropped
}

// Dump outputs the ring through the debug writer (call on shutdown/error)
func (r *TimingRing) Dump() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[DIAG] === Anomaly Ring Dump ===")
	for _, a := range r.Snapshot() {
		debugPrintln("[DIAG] " + a.Kind.String() +
			" t=" + utoa(uint32(a.Time)) +
			" v1=" + utoa(a.Value1) +
			" v2=" + utoa(a.Value2))
	}
	debugPrintln("[DIAG] === End Dump ===")
}

// Clear empties the ring.
func (r *TimingRing) Clear() {
	state := disableInterrupts()
	r.ring = [TimingRingSize]Anomaly{}
	r.head = 0
	r.dropped = 0
	restoreInterrupts(state)
}

// AsyncSink forwards anomalies to a buffered channel and drops them when
// the reader falls behind.
type AsyncSink struct {
	C       chan Anomaly
	dropped uint32
}

// NewAsyncSink creates a sink with room for depth pending records.
func NewAsyncSink(depth int) *AsyncSink {
	return &AsyncSink{C: make(chan Anomaly, depth)}
}

// Report queues a without blocking.
func (s *AsyncSink) Report(a Anomaly) {
	select {
	case s.C <- a:
	default:
		s.dropped++
	}
}

// Dropped returns how many records were discarded on backpressure.
func (s *AsyncSink) Dropped() uint32 {
	return s.dropped
}

// MultiSink fans a report out to several sinks.
type MultiSink []DiagSink

// Report forwards a to every sink.
func (m MultiSink) Report(a Anomaly) {
	for _, s := range m {
		if s != nil {
			s.Report(a)
		}
	}
}

type discardSink struct{}

func (discardSink) Report(Anomaly) {}
