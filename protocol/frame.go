package protocol

import "errors"

var (
	ErrBadFrame = errors.New("malformed frame")
	ErrBadCRC   = errors.New("frame CRC mismatch")
)

// Frame is one diagnostic record on the wire.
type Frame struct {
	Seq    uint8
	Kind   uint8
	Time   uint32
	Value1 uint32
	Value2 uint32
}

// EncodeFrame appends f to output as a complete block.
func EncodeFrame(output OutputBuffer, f Frame) {
	start := output.CurPosition()
	output.Output([]byte{0, MessageDest | f.Seq&MessageSeqMask})
	EncodeVLQUint(output, uint32(f.Kind))
	EncodeVLQUint(output, f.Time)
	EncodeVLQUint(output, f.Value1)
	EncodeVLQUint(output, f.Value2)

	length := output.CurPosition() - start + MessageTrailerSize
	output.Update(start+MessagePositionLen, byte(length))
	crc := CRC16(output.DataSince(start))
	output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
}

// DecodeFrame parses the block at the start of data and returns it with
// the number of bytes consumed. Leading sync bytes are skipped.
func DecodeFrame(data []byte) (Frame, int, error) {
	skipped := 0
	for skipped < len(data) && data[skipped] == MessageValueSync {
		skipped++
	}
	data = data[skipped:]

	if len(data) < MessageLengthMin {
		return Frame{}, skipped, ErrBufferTooSmall
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageMax {
		return Frame{}, skipped + 1, ErrBadFrame
	}
	if len(data) < n {
		return Frame{}, skipped, ErrBufferTooSmall
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest || data[n-1] != MessageValueSync {
		return Frame{}, skipped + 1, ErrBadFrame
	}
	want := uint16(data[n-3])<<8 | uint16(data[n-2])
	if CRC16(data[:n-MessageTrailerSize]) != want {
		return Frame{}, skipped + n, ErrBadCRC
	}

	body := data[MessageHeaderSize : n-MessageTrailerSize]
	var fields [4]uint32
	for i := range fields {
		v, err := DecodeVLQUint(&body)
		if err != nil {
			return Frame{}, skipped + n, ErrBadFrame
		}
		fields[i] = v
	}
	if len(body) != 0 {
		return Frame{}, skipped + n, ErrBadFrame
	}
	return Frame{
		Seq:    seq & MessageSeqMask,
		Kind:   uint8(fields[0]),
		Time:   fields[1],
		Value1: fields[2],
		Value2: fields[3],
	}, skipped + n, nil
}
