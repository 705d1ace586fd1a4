package core

import (
	"io"

	"gopper-esc/protocol"
)

// FrameSink is a DiagSink that encodes each anomaly as a protocol frame
// into a byte FIFO. The main loop drains the FIFO to the diagnostic link.
type FrameSink struct {
	fifo    *protocol.FifoBuffer
	scratch protocol.ScratchOutput
	seq     uint8
	dropped uint32
}

// NewFrameSink creates a sink buffering up to capacity bytes of frames.
func NewFrameSink(capacity int) *FrameSink {
	return &FrameSink{fifo: protocol.NewFifoBuffer(capacity + 1)}
}

// Report encodes a. A frame that does not fit whole is dropped.
func (s *FrameSink) Report(a Anomaly) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.scratch.Reset()
	protocol.EncodeFrame(&s.scratch, protocol.Frame{
		Seq:    s.seq,
		Kind:   uint8(a.Kind),
		Time:   uint32(a.Time),
		Value1: a.Value1,
		Value2: a.Value2,
	})
	frame := s.scratch.Result()
	if s.fifo.Free() < len(frame) {
		s.dropped++
		return
	}
	s.fifo.Write(frame)
	s.seq = (s.seq + 1) & protocol.MessageSeqMask
}

// Dropped returns how many frames were discarded for lack of space.
func (s *FrameSink) Dropped() uint32 {
	return s.dropped
}

// Pending returns the number of buffered bytes.
func (s *FrameSink) Pending() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.fifo.Available()
}

// Drain moves every buffered byte to w. Bytes w fails to accept are lost;
// readers resynchronise on the next sync byte.
func (s *FrameSink) Drain(w io.Writer) (int, error) {
	var chunk [protocol.MessageMax]byte
	total := 0
	for {
		state := disableInterrupts()
		n := s.fifo.Read(chunk[:])
		restoreInterrupts(state)
		if n == 0 {
			return total, nil
		}
		written, err := w.Write(chunk[:n])
		total += written
		if err != nil {
			return total, err
		}
	}
}
