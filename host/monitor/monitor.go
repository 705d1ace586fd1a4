// Package monitor reads the diagnostic frame stream of a running ESC.
package monitor

import (
	"errors"
	"fmt"
	"io"

	"gopper-esc/core"
	"gopper-esc/host/serial"
	"gopper-esc/protocol"
)

// Record is one decoded diagnostic frame.
type Record struct {
	Seq     uint8
	Anomaly core.Anomaly
}

func (r Record) String() string {
	a := r.Anomaly
	return fmt.Sprintf("[%2d] %-12s t=%d v1=%d v2=%d", r.Seq, a.Kind, uint32(a.Time), a.Value1, a.Value2)
}

// Stats counts link health.
type Stats struct {
	Bytes     uint64
	Frames    uint32
	CRCErrors uint32
	BadFrames uint32
	SeqGaps   uint32 // frames lost between two received ones
}

// Monitor decodes frames arriving on a serial link.
type Monitor struct {
	port serial.Port
	buf  []byte

	expectSeq uint8
	haveSeq   bool

	Stats Stats
}

// New creates a monitor that is not yet connected.
func New() *Monitor {
	return &Monitor{buf: make([]byte, 0, 4*protocol.MessageMax)}
}

// Connect opens device at baud.
func (m *Monitor) Connect(device string, baud int) error {
	cfg := serial.DefaultConfig(device)
	cfg.Baud = baud
	return m.ConnectWithConfig(cfg)
}

// ConnectWithConfig opens a port with a custom serial config.
func (m *Monitor) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach reads from an already open port.
func (m *Monitor) Attach(port serial.Port) {
	m.port = port
	m.buf = m.buf[:0]
	m.haveSeq = false
}

// Close closes the port.
func (m *Monitor) Close() error {
	if m.port == nil {
		return nil
	}
	err := m.port.Close()
	m.port = nil
	return err
}

// IsConnected returns whether a port is attached.
func (m *Monitor) IsConnected() bool {
	return m.port != nil
}

// Feed decodes every complete frame in data, together with bytes left
// over from earlier calls, and passes each record to fn.
func (m *Monitor) Feed(data []byte, fn func(Record)) {
	m.Stats.Bytes += uint64(len(data))
	m.buf = append(m.buf, data...)

	for len(m.buf) > 0 {
		f, n, err := protocol.DecodeFrame(m.buf)
		switch {
		case errors.Is(err, protocol.ErrBufferTooSmall):
			m.buf = append(m.buf[:0], m.buf[n:]...)
			return
		case errors.Is(err, protocol.ErrBadCRC):
			m.Stats.CRCErrors++
		case err != nil:
			m.Stats.BadFrames++
		default:
			m.accept(f, fn)
		}
		m.buf = m.buf[n:]
	}
}

func (m *Monitor) accept(f protocol.Frame, fn func(Record)) {
	m.Stats.Frames++
	if m.haveSeq && f.Seq != m.expectSeq {
		m.Stats.SeqGaps += uint32((f.Seq - m.expectSeq) & protocol.MessageSeqMask)
	}
	m.expectSeq = (f.Seq + 1) & protocol.MessageSeqMask
	m.haveSeq = true

	if fn != nil {
		fn(Record{
			Seq: f.Seq,
			Anomaly: core.Anomaly{
				Kind:   core.AnomalyKind(f.Kind),
				Time:   core.Time(f.Time),
				Value1: f.Value1,
				Value2: f.Value2,
			},
		})
	}
}

// Run reads until the link goes idle or fails and feeds every chunk. An
// idle link (EOF, or an empty read on a timeout) ends the run without an
// error.
func (m *Monitor) Run(fn func(Record)) error {
	if m.port == nil {
		return fmt.Errorf("not connected")
	}
	var chunk [256]byte
	for {
		n, err := m.port.Read(chunk[:])
		if n > 0 {
			m.Feed(chunk[:n], fn)
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read diag stream: %w", err)
		}
	}
}

// PrintStats prints a summary of the link health
func (m *Monitor) PrintStats() {
	fmt.Println("\n=== Diag Link ===")
	fmt.Printf("Bytes:      %d\n", m.Stats.Bytes)
	fmt.Printf("Frames:     %d\n", m.Stats.Frames)
	fmt.Printf("CRC errors: %d\n", m.Stats.CRCErrors)
	fmt.Printf("Bad frames: %d\n", m.Stats.BadFrames)
	fmt.Printf("Lost:       %d\n", m.Stats.SeqGaps)
	fmt.Println("=================")
}
