// SPDX-License-Identifier: MIT
package synth

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"specsynth/internal/config"
	"specsynth/internal/log"
	"specsynth/internal/phase"
	"specsynth/internal/stft"
	"specsynth/internal/transport"
)

// Result is one rendered variation.
type Result struct {
	Seed    uint64
	Samples []float64
	Phases  [][]float64
}

// Session holds everything that stays fixed across renders for one STFT
// geometry: the increment table, the inverse transform and the wrap mode.
type Session struct {
	table     *phase.IncrementTable
	synth     *Synthesizer
	gen       *phase.Generator
	wrap      phase.WrapMode
	seed      uint64
	normalize bool

	publish       transport.Transport
	publishPhases bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTransport publishes every rendered frame to t.
func WithTransport(t transport.Transport) SessionOption {
	return func(s *Session) { s.publish = t }
}

// WithPublishedPhases includes the synthetic phases in published frames.
func WithPublishedPhases(on bool) SessionOption {
	return func(s *Session) { s.publishPhases = on }
}

// WithInverter replaces the inverse transform built from the config.
func WithInverter(inv stft.Inverter) SessionOption {
	return func(s *Session) { s.synth = NewSynthesizer(inv) }
}

// NewSession builds a Session from the stft, phase and synthesis sections of cfg.
func NewSession(cfg *config.Config, opts ...SessionOption) (*Session, error) {
	table, err := phase.NewIncrementTable(cfg.STFT.FFTSize, cfg.STFT.HopSize, cfg.STFT.SampleRate)
	if err != nil {
		return nil, err
	}
	wrap, err := phase.ParseWrapMode(cfg.Phase.Wrap)
	if err != nil {
		return nil, err
	}

	s := &Session{
		table:     table,
		wrap:      wrap,
		seed:      cfg.Phase.Seed,
		normalize: cfg.Synthesis.Normalize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.synth == nil {
		inv, err := newInverse(cfg.STFT)
		if err != nil {
			return nil, err
		}
		s.synth = NewSynthesizer(inv)
	}

	genOpts := []phase.Option{phase.WithWrapMode(wrap)}
	if s.seed != 0 {
		genOpts = append(genOpts, phase.WithSeed(s.seed))
	}
	s.gen = phase.NewGenerator(genOpts...)
	s.seed = s.gen.Seed()

	log.WithFields(log.Fields{
		"fft_size":    cfg.STFT.FFTSize,
		"hop_size":    cfg.STFT.HopSize,
		"sample_rate": cfg.STFT.SampleRate,
		"wrap":        wrap,
		"seed":        s.seed,
	}).Debug("synth: session ready")

	return s, nil
}

func newInverse(c config.STFTConfig) (*stft.ISTFT, error) {
	window, err := stft.ParseWindowFunc(c.Window)
	if err != nil {
		return nil, err
	}
	backend, err := stft.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	if backend == stft.BackendGossp {
		// gossp only provides the analysis side.
		log.Debugf("synth: gossp has no inverse transform, using %s", stft.BackendGonum)
		backend = stft.BackendGonum
	}
	return stft.NewISTFT(c.FFTSize,
		stft.WithWindow(window),
		stft.WithCenter(c.Center),
		stft.WithBackend(backend),
	)
}

// Table returns the cached increment table.
func (s *Session) Table() *phase.IncrementTable { return s.table }

// Seed returns the base seed; Batch job i uses Seed()+i, wrapping at 2^64.
// A config seed of 0 is replaced by a random one, which Seed reports.
func (s *Session) Seed() uint64 { return s.seed }

// Frames returns how many frames cover duration seconds:
// ceil((duration*sampleRate - fftSize) / hop) + 1, at least 1.
func (s *Session) Frames(duration float64) int {
	return FramesFor(duration, s.table.SampleRate(), s.table.FFTSize(), s.table.HopSize())
}

// FramesFor is Frames without a Session.
func FramesFor(duration, sampleRate float64, fftSize, hopSize int) int {
	if hopSize <= 0 || !(duration > 0) {
		return 1
	}
	n := math.Ceil((duration*sampleRate-float64(fftSize))/float64(hopSize)) + 1
	if n < 1 {
		return 1
	}
	return int(n)
}

// Render pairs mags with a fresh phase trajectory from the session generator
// and synthesises them. Successive calls use different initial phases.
func (s *Session) Render(mags [][]float64) (*Result, error) {
	res, err := s.render(s.gen, mags)
	if err != nil {
		return nil, err
	}
	if s.publish != nil {
		s.publishFrames(mags, res.Phases)
	}
	return res, nil
}

// Batch renders n independent variations of mags concurrently. Job i uses
// its own generator seeded with Seed()+i, so job 0 matches what a fresh
// session's first Render would produce. Cancelling ctx stops scheduling new
// jobs. Batch does not publish frames.
func (s *Session) Batch(ctx context.Context, mags [][]float64, n int) ([]*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", phase.ErrInvalidConfiguration, n)
	}

	results := make([]*Result, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gen := phase.NewGenerator(phase.WithWrapMode(s.wrap), phase.WithSeed(s.seed+uint64(i)))
			res, err := s.render(gen, mags)
			if err != nil {
				return fmt.Errorf("variation %d: %w", i, err)
			}
			results[i] = res
			log.Debugf("synth: variation %d rendered (%d samples)", i, len(res.Samples))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Session) render(gen *phase.Generator, mags [][]float64) (*Result, error) {
	numBins := s.table.Len()
	for i, frame := range mags {
		if len(frame) != numBins {
			return nil, fmt.Errorf("%w: frame %d has %d bins, table has %d", phase.ErrShapeMismatch, i, len(frame), numBins)
		}
	}

	phases, err := gen.Generate(len(mags), s.table)
	if err != nil {
		return nil, err
	}

	samples, err := s.synth.Synthesize(mags, phases, s.table.HopSize())
	if err != nil {
		return nil, err
	}

	if s.normalize {
		Normalize(samples)
	}

	return &Result{Seed: gen.Seed(), Samples: samples, Phases: phases}, nil
}

func (s *Session) publishFrames(mags, phases [][]float64) {
	for i := range mags {
		ev := transport.FrameEvent{Index: i, Magnitudes: mags[i]}
		if s.publishPhases {
			ev.Phases = phases[i]
		}
		if err := s.publish.Send(ev); err != nil {
			log.Warnf("synth: publishing frame %d: %v", i, err)
			return
		}
	}
}

// Normalize scales samples in place so the absolute peak is 1. Silent
// buffers are left untouched. It returns the gain applied.
func Normalize(samples []float64) float64 {
	if len(samples) == 0 {
		return 1
	}
	peak := math.Max(floats.Max(samples), -floats.Min(samples))
	if peak == 0 {
		return 1
	}
	gain := 1 / peak
	floats.Scale(gain, samples)
	return gain
}
