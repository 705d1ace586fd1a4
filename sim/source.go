package sim

import (
	"errors"

	"gopper-esc/core"
)

var ErrSourceRunning = errors.New("sim: sample source already running")

// Source assembles per-sample ADC readings into batches and hands them to
// the registered handler, like a DMA ring completing a transfer.
type Source struct {
	cfg     *core.Config
	size    int
	handler func(*core.SampleBatch)
	running bool

	batch core.SampleBatch
	n     int

	Batches uint32
}

// NewSource creates a source delivering batches of size sample sets laid
// out per cfg.
func NewSource(cfg *core.Config, size int) *Source {
	if size < 1 {
		size = 1
	}
	return &Source{
		cfg:  cfg,
		size: size,
		batch: core.SampleBatch{
			Channels: cfg.Channels,
			Raw:      make([]core.ADCValue, size*cfg.Channels),
		},
	}
}

func (s *Source) Start(handler func(*core.SampleBatch)) error {
	if handler == nil {
		return errors.New("sim: nil sample handler")
	}
	if s.running {
		return ErrSourceRunning
	}
	s.handler = handler
	s.running = true
	s.n = 0
	return nil
}

func (s *Source) Stop() {
	s.running = false
	s.n = 0
}

// Running reports whether acquisition is active.
func (s *Source) Running() bool {
	return s.running
}

// Add stores one sample set taken at t and delivers the batch once full.
func (s *Source) Add(t core.Time, counts [3]core.ADCValue) {
	if !s.running {
		return
	}
	if s.n == 0 {
		s.batch.Start = t
	}
	base := s.n * s.cfg.Channels
	for ph, v := range counts {
		s.batch.Raw[base+s.cfg.PhaseChannels[ph]] = v
	}
	s.n++
	if s.n < s.size {
		return
	}
	s.n = 0
	s.Batches++
	s.handler(&s.batch)
}
