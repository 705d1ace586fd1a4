package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// tarmPort is a Port on an OS serial device.
type tarmPort struct {
	port   *serial.Port
	device string
}

// Open opens the device named in cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d for %s", cfg.Baud, cfg.Device)
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &tarmPort{port: port, device: cfg.Device}, nil
}

// Read returns io.EOF when the read timeout expires with no data.
func (p *tarmPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write retries short writes until b is sent or the driver fails.
func (p *tarmPort) Write(b []byte) (int, error) {
	sent := 0
	for sent < len(b) {
		n, err := p.port.Write(b[sent:])
		sent += n
		if err != nil {
			return sent, fmt.Errorf("write %s: %w", p.device, err)
		}
		if n == 0 {
			return sent, io.ErrShortWrite
		}
	}
	return sent, nil
}

func (p *tarmPort) Close() error {
	return p.port.Close()
}

// Flush is a no-op: tarm/serial's Flush discards unsent output, and Write
// already blocks until the driver has taken the bytes.
func (p *tarmPort) Flush() error {
	return nil
}

func (p *tarmPort) String() string {
	return p.device
}
