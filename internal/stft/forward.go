// SPDX-License-Identifier: MIT
package stft

import (
	"fmt"

	"specsynth/internal/log"
	"specsynth/internal/phase"

	gossp "github.com/r9y9/gossp/stft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// STFT is the forward transform used to derive magnitude frames from real
// audio. Frames of windowSize samples are taken every hopSize samples,
// windowed, zero padded to fftSize and transformed.
type STFT struct {
	fftSize    int
	windowSize int
	hopSize    int
	window     []float64
	center     bool
	backend    Backend
}

// ForwardOption configures an STFT.
type ForwardOption func(*STFT)

// WithAnalysisWindow selects the analysis window. The default is Hann.
func WithAnalysisWindow(w WindowFunc) ForwardOption {
	return func(s *STFT) { s.window = Coefficients(w, s.windowSize) }
}

// WithCenterPadding pads fftSize/2 zeros on both sides of the input so that
// frame f is centered on sample f*hopSize.
func WithCenterPadding(center bool) ForwardOption {
	return func(s *STFT) { s.center = center }
}

// WithForwardBackend selects gonum or gossp. gossp always uses its own Hann
// window spanning fftSize and ignores windowSize.
func WithForwardBackend(b Backend) ForwardOption {
	return func(s *STFT) { s.backend = b }
}

// NewSTFT creates a forward transform. windowSize of 0 means fftSize.
func NewSTFT(fftSize, windowSize, hopSize int, opts ...ForwardOption) (*STFT, error) {
	if windowSize == 0 {
		windowSize = fftSize
	}
	if fftSize <= 0 || hopSize <= 0 || windowSize <= 0 {
		return nil, fmt.Errorf("%w: fft size %d, window size %d, hop size %d must be positive",
			phase.ErrInvalidConfiguration, fftSize, windowSize, hopSize)
	}
	if windowSize > fftSize {
		return nil, fmt.Errorf("%w: window size %d exceeds fft size %d", phase.ErrInvalidConfiguration, windowSize, fftSize)
	}

	s := &STFT{
		fftSize:    fftSize,
		windowSize: windowSize,
		hopSize:    hopSize,
		backend:    BackendGonum,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.window == nil {
		s.window = Coefficients(Hann, windowSize)
	}
	if s.backend == BackendGoDSP {
		return nil, fmt.Errorf("%w: backend %s has no forward transform", phase.ErrInvalidConfiguration, s.backend)
	}
	if s.backend == BackendGossp && windowSize != fftSize {
		log.Debugf("STFT: gossp backend ignores window size %d, using %d", windowSize, fftSize)
	}
	return s, nil
}

// NumFrames returns the number of frames Forward yields for n input samples.
func (s *STFT) NumFrames(n int) int {
	if s.center {
		n += 2 * (s.fftSize / 2)
	}
	span := s.windowSize
	if s.backend == BackendGossp {
		span = s.fftSize
	}
	if n < span {
		return 1
	}
	return (n-span)/s.hopSize + 1
}

func (s *STFT) prepare(samples []float64) []float64 {
	span := s.windowSize
	if s.backend == BackendGossp {
		span = s.fftSize
	}
	pad := 0
	if s.center {
		pad = s.fftSize / 2
	}
	n := max(len(samples)+2*pad, span)
	if pad == 0 && n == len(samples) {
		return samples
	}
	out := make([]float64, n)
	copy(out[pad:], samples)
	return out
}

// Forward implements Forwarder.
func (s *STFT) Forward(samples []float64) (Spectrogram, error) {
	input := s.prepare(samples)
	if s.backend == BackendGossp {
		return s.forwardGossp(input)
	}

	numFrames := s.NumFrames(len(samples))
	numBins := s.fftSize/2 + 1
	f := fourier.NewFFT(s.fftSize)
	win := padCentered(s.window, s.fftSize)
	offset := (s.fftSize - s.windowSize) / 2

	frames := make([][]complex128, numFrames)
	buf := make([]float64, s.fftSize)
	for i := range frames {
		for j := range buf {
			buf[j] = 0
		}
		start := i * s.hopSize
		for j := 0; j < s.windowSize && start+j < len(input); j++ {
			buf[offset+j] = input[start+j] * win[offset+j]
		}
		frames[i] = f.Coefficients(make([]complex128, numBins), buf)
	}
	return FromFrames(frames, s.fftSize)
}

func (s *STFT) forwardGossp(input []float64) (Spectrogram, error) {
	t := gossp.New(s.hopSize, s.fftSize)
	full := t.STFT(input)

	numBins := s.fftSize/2 + 1
	frames := make([][]complex128, len(full))
	for i, frame := range full {
		if len(frame) < numBins {
			return Spectrogram{}, fmt.Errorf("%w: gossp frame %d has %d bins", phase.ErrShapeMismatch, i, len(frame))
		}
		frames[i] = frame[:numBins]
	}
	return FromFrames(frames, s.fftSize)
}

// HopSize returns the analysis hop.
func (s *STFT) HopSize() int { return s.hopSize }

// FFTSize returns the transform size.
func (s *STFT) FFTSize() int { return s.fftSize }

var _ Forwarder = (*STFT)(nil)
