// Package config loads ESC tuning and simulator settings from YAML.
// Fields absent from the file keep their built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"gopper-esc/core"
	"gopper-esc/sim"
)

// File is the top-level layout of a tuning file.
type File struct {
	ESC   core.Config     `yaml:"esc"`
	Motor sim.MotorParams `yaml:"motor"`
	Diag  Diag            `yaml:"diag"`
}

// Diag configures the diagnostic frame stream.
type Diag struct {
	Port   string `yaml:"port"`   // serial device, empty to disable
	Baud   int    `yaml:"baud"`
	Buffer int    `yaml:"buffer"` // frame FIFO size in bytes
}

// Default returns the built-in tune and simulated motor.
func Default() File {
	return File{
		ESC:   core.DefaultConfig(),
		Motor: sim.DefaultMotorParams(),
		Diag: Diag{
			Baud:   115200,
			Buffer: 1024,
		},
	}
}

// Parse overlays the YAML document in b onto the defaults and validates
// the result. Unknown keys are rejected.
func Parse(b []byte) (File, error) {
	f := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse config: %w", err)
	}

	if err := f.ESC.Validate(); err != nil {
		return File{}, err
	}
	if f.Diag.Baud <= 0 {
		return File{}, fmt.Errorf("diag.baud must be > 0")
	}
	if f.Diag.Buffer < 64 {
		return File{}, fmt.Errorf("diag.buffer must be at least 64 bytes")
	}
	return f, nil
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(b)
}
