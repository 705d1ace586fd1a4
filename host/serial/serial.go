// Package serial opens the byte link between a host tool and the ESC's
// diagnostic UART.
package serial

import "io"

// Port is a byte link to the ESC. Open returns one backed by
// github.com/tarm/serial; tests use in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush pushes buffered output to the device
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	Device string // e.g. "/dev/ttyUSB0", "COM3"
	Baud   int    // ignored for USB CDC

	// ReadTimeout in milliseconds; 0 blocks until data arrives. With a
	// timeout, an idle link makes Read return io.EOF.
	ReadTimeout int
}

// DefaultConfig returns the configuration used for the diagnostic stream
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
