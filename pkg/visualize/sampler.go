// ABOUTME: Periodic spectrum sampler for the visualization feed
// ABOUTME: Polls the live analyser at display rate and always ends on a silence frame
package visualize

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultFPS is the display refresh rate the sampler ticks at
const DefaultFPS = 60

// Spectrum is the analysis tap a sampler reads from
type Spectrum interface {
	FrequencyBinCount() int
	FloatFrequencyData(dst []float32)
}

// Config holds sampler configuration
type Config struct {
	// FPS is the tick rate (default: 60)
	FPS int

	// Deliver receives every frame
	Deliver func(Frame)

	// Source returns the current analysis tap, or nil when it is not wired yet
	Source func() Spectrum

	// Started reports whether playback is still running
	Started func() bool
}

// Sampler turns analyser snapshots into display frames
type Sampler struct {
	config Config
	frames atomic.Int64
}

// NewSampler creates a sampler
func NewSampler(config Config) *Sampler {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Source == nil {
		config.Source = func() Spectrum { return nil }
	}
	if config.Started == nil {
		config.Started = func() bool { return false }
	}
	return &Sampler{config: config}
}

// Run ticks until playback stops or ctx is cancelled. Either way the last
// frame delivered is a SilenceFrame.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.config.FPS))
	defer ticker.Stop()

	spectrum := make([]float32, BinCount)
	for {
		select {
		case <-ctx.Done():
			s.deliver(SilenceFrame())
			return
		case <-ticker.C:
		}

		if !s.config.Started() {
			s.deliver(SilenceFrame())
			return
		}

		src := s.config.Source()
		if src == nil {
			continue
		}

		n := src.FrequencyBinCount()
		if n > BinCount {
			n = BinCount
		}
		src.FloatFrequencyData(spectrum[:n])
		s.deliver(Enhance(spectrum[:n]))
	}
}

func (s *Sampler) deliver(f Frame) {
	s.frames.Add(1)
	if s.config.Deliver != nil {
		s.config.Deliver(f)
	}
}

// Frames returns the number of frames delivered so far
func (s *Sampler) Frames() int64 {
	return s.frames.Load()
}
