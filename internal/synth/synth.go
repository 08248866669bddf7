// SPDX-License-Identifier: MIT

// Package synth turns magnitude spectrograms into audio by pairing them with
// synthetic phase trajectories and running an inverse STFT.
package synth

import (
	"fmt"

	"specsynth/internal/phase"
	"specsynth/internal/stft"
)

// Synthesizer combines magnitudes and phases into a complex spectrogram and
// hands it to an injected inverse transform.
type Synthesizer struct {
	inv stft.Inverter
}

// NewSynthesizer wraps inv.
func NewSynthesizer(inv stft.Inverter) *Synthesizer {
	return &Synthesizer{inv: inv}
}

// Synthesize reconstructs a sample buffer from frame-major magnitudes and
// phases of identical shape.
func (s *Synthesizer) Synthesize(mags, phases [][]float64, hopSize int) ([]float64, error) {
	if hopSize <= 0 {
		return nil, fmt.Errorf("%w: hop size must be positive, got %d", phase.ErrInvalidConfiguration, hopSize)
	}

	frames, err := phase.PolarFrames(mags, phases)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return []float64{}, nil
	}

	fftSize := 0
	if sized, ok := s.inv.(interface{ FFTSize() int }); ok {
		fftSize = sized.FFTSize()
	}
	spec, err := stft.FromFrames(frames, fftSize)
	if err != nil {
		return nil, err
	}

	return s.inv.Inverse(spec, hopSize)
}
