//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"gopper-esc/core"
)

var errSourceRunning = errors.New("adc source already running")

// adcSource samples the three phase dividers from the main loop and hands
// the controller one batch every batchSize sample sets.
type adcSource struct {
	cfg     *core.Config
	adc     [3]machine.ADC
	handler func(*core.SampleBatch)

	batch core.SampleBatch
	n     int
	next  core.Time
}

// newADCSource configures phase A, B and C sense pins.
func newADCSource(cfg *core.Config, pins [3]machine.Pin, batchSize int) *adcSource {
	machine.InitADC()
	s := &adcSource{cfg: cfg}
	for i, pin := range pins {
		s.adc[i] = machine.ADC{Pin: pin}
		s.adc[i].Configure(machine.ADCConfig{})
	}
	s.batch.Channels = cfg.Channels
	s.batch.Raw = make([]core.ADCValue, batchSize*cfg.Channels)
	return s
}

func (s *adcSource) Start(handler func(*core.SampleBatch)) error {
	if s.handler != nil {
		return errSourceRunning
	}
	s.n = 0
	s.handler = handler
	return nil
}

func (s *adcSource) Stop() {
	s.handler = nil
}

// Poll takes one sample set once the sample interval has passed.
func (s *adcSource) Poll(now core.Time) {
	if s.handler == nil || now.Before(s.next) {
		return
	}
	s.next = now.Add(s.cfg.SampleInterval)

	if s.n == 0 {
		s.batch.Start = now
	}
	base := s.n * s.batch.Channels
	for phase, ch := range s.cfg.PhaseChannels {
		// machine.ADC scales the 12-bit result to 16 bits
		s.batch.Raw[base+ch] = core.ADCValue(s.adc[phase].Get() >> 4)
	}

	s.n++
	if s.n*s.batch.Channels == len(s.batch.Raw) {
		s.n = 0
		s.handler(&s.batch)
	}
}
