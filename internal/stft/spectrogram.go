// SPDX-License-Identifier: MIT
package stft

import (
	"fmt"
	"math/cmplx"

	"specsynth/internal/phase"
)

// Spectrogram is a one-sided complex STFT laid out bin-major: Bins[k][f] is
// bin k of frame f. This is the layout the inverse transform consumes.
type Spectrogram struct {
	FFTSize int
	Bins    [][]complex128
}

// NumBins returns the number of frequency bins.
func (s Spectrogram) NumBins() int { return len(s.Bins) }

// NumFrames returns the number of time frames.
func (s Spectrogram) NumFrames() int {
	if len(s.Bins) == 0 {
		return 0
	}
	return len(s.Bins[0])
}

// FromFrames transposes frame-major complex frames into a Spectrogram. All
// frames must have fftSize/2+1 bins. An fftSize of 0 derives it from the
// bin count, assuming an even FFT size.
func FromFrames(frames [][]complex128, fftSize int) (Spectrogram, error) {
	if len(frames) == 0 {
		return Spectrogram{FFTSize: fftSize}, nil
	}
	numBins := len(frames[0])
	if fftSize == 0 {
		fftSize = 2 * (numBins - 1)
	}
	if numBins != fftSize/2+1 {
		return Spectrogram{}, fmt.Errorf("%w: %d bins for fft size %d", phase.ErrShapeMismatch, numBins, fftSize)
	}

	bins := make([][]complex128, numBins)
	for k := range bins {
		bins[k] = make([]complex128, len(frames))
	}
	for f, frame := range frames {
		if len(frame) != numBins {
			return Spectrogram{}, fmt.Errorf("%w: frame %d has %d bins, want %d", phase.ErrShapeMismatch, f, len(frame), numBins)
		}
		for k, c := range frame {
			bins[k][f] = c
		}
	}
	return Spectrogram{FFTSize: fftSize, Bins: bins}, nil
}

// Frames transposes back to frame-major order.
func (s Spectrogram) Frames() [][]complex128 {
	frames := make([][]complex128, s.NumFrames())
	for f := range frames {
		frames[f] = make([]complex128, s.NumBins())
		for k := range s.Bins {
			frames[f][k] = s.Bins[k][f]
		}
	}
	return frames
}

// Magnitudes returns frame-major magnitudes, the shape a model predicts.
func (s Spectrogram) Magnitudes() [][]float64 {
	mags := make([][]float64, s.NumFrames())
	for f := range mags {
		mags[f] = make([]float64, s.NumBins())
		for k := range s.Bins {
			mags[f][k] = cmplx.Abs(s.Bins[k][f])
		}
	}
	return mags
}

// Validate checks that every bin row has the same frame count and that the
// bin count matches FFTSize.
func (s Spectrogram) Validate() error {
	if s.FFTSize <= 0 {
		return fmt.Errorf("%w: fft size must be positive, got %d", phase.ErrInvalidConfiguration, s.FFTSize)
	}
	if len(s.Bins) != s.FFTSize/2+1 {
		return fmt.Errorf("%w: %d bins for fft size %d", phase.ErrShapeMismatch, len(s.Bins), s.FFTSize)
	}
	n := s.NumFrames()
	for k, row := range s.Bins {
		if len(row) != n {
			return fmt.Errorf("%w: bin %d has %d frames, bin 0 has %d", phase.ErrShapeMismatch, k, len(row), n)
		}
	}
	return nil
}
