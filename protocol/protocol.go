// Package protocol encodes diagnostic records for transport off the board.
// Frames use Klipper-style block framing: a length byte, a sequence byte,
// VLQ-encoded fields, a CRC16 and a trailing sync byte.
package protocol

// Version represents the diagnostic frame format version
const Version = "1"

// Protocol constants
const (
	MessageMax         = 64 // Largest frame the encoder produces
	MessageHeaderSize  = 2  // length + sequence
	MessageTrailerSize = 3  // CRC16 + sync
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F
)
