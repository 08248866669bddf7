// SPDX-License-Identifier: MIT
package stft

import (
	"fmt"
	"math"
	"math/cmplx"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"specsynth/internal/phase"
)

// windowSumFloor is the smallest summed squared window that is divided out.
const windowSumFloor = 1e-10

// windowSumRatio sets the normalisation floor relative to the largest summed
// squared window. Samples covered by less than this, the ramps at both ends
// of an uncentered output, are divided by the floor instead and fade out.
const windowSumRatio = 0.5

// inverseFFT computes the real fftSize-sample frame whose one-sided
// spectrum is coeff, scaled so that forward followed by inverse is identity.
type inverseFFT interface {
	inverse(dst []float64, coeff []complex128)
}

type gonumInverse struct {
	fft *fourier.FFT
	n   float64
}

func (g *gonumInverse) inverse(dst []float64, coeff []complex128) {
	g.fft.Sequence(dst, coeff)
	for i := range dst {
		dst[i] /= g.n
	}
}

// godspInverse rebuilds the Hermitian full spectrum and runs go-dsp's
// complex IFFT, which already scales by 1/n.
type godspInverse struct {
	full []complex128
}

func (g *godspInverse) inverse(dst []float64, coeff []complex128) {
	n := len(g.full)
	for i := range g.full {
		g.full[i] = 0
	}
	copy(g.full, coeff)
	for k := 1; k < len(coeff) && n-k >= len(coeff); k++ {
		g.full[n-k] = cmplx.Conj(coeff[k])
	}
	out := dspfft.IFFT(g.full)
	for i := range dst {
		dst[i] = real(out[i])
	}
}

// ISTFT is a weighted overlap-add inverse STFT. Each frame is inverse
// transformed, multiplied by the synthesis window and added at frame*hop;
// the sum is then divided by the overlapped squared window, clamped below
// at half its maximum.
//
// Output length is (numFrames-1)*hop + fftSize, or that minus fftSize when
// Center trims the fftSize/2 padding a centered forward STFT adds.
type ISTFT struct {
	fftSize int
	window  []float64
	center  bool
	backend Backend
	ifft    inverseFFT
}

// InverseOption configures an ISTFT.
type InverseOption func(*ISTFT)

// WithWindow selects the synthesis window. The default is Hann.
func WithWindow(w WindowFunc) InverseOption {
	return func(s *ISTFT) { s.window = Coefficients(w, s.fftSize) }
}

// WithCenter trims fftSize/2 samples from both ends of the output.
func WithCenter(center bool) InverseOption {
	return func(s *ISTFT) { s.center = center }
}

// WithBackend selects the inverse FFT implementation.
func WithBackend(b Backend) InverseOption {
	return func(s *ISTFT) { s.backend = b }
}

// NewISTFT creates an inverse transform for frames of fftSize samples.
func NewISTFT(fftSize int, opts ...InverseOption) (*ISTFT, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("%w: fft size must be positive, got %d", phase.ErrInvalidConfiguration, fftSize)
	}
	s := &ISTFT{fftSize: fftSize, backend: BackendGonum}
	for _, opt := range opts {
		opt(s)
	}
	if s.window == nil {
		s.window = Coefficients(Hann, fftSize)
	}

	switch s.backend {
	case BackendGoDSP:
		s.ifft = &godspInverse{full: make([]complex128, fftSize)}
	case BackendGonum:
		s.ifft = &gonumInverse{fft: fourier.NewFFT(fftSize), n: float64(fftSize)}
	default:
		return nil, fmt.Errorf("%w: backend %s has no inverse transform", phase.ErrInvalidConfiguration, s.backend)
	}
	return s, nil
}

// FFTSize returns the frame length in samples.
func (s *ISTFT) FFTSize() int { return s.fftSize }

// OutputLen returns the number of samples Inverse produces for numFrames.
func (s *ISTFT) OutputLen(numFrames, hopSize int) int {
	if numFrames <= 0 {
		return 0
	}
	n := (numFrames-1)*hopSize + s.fftSize
	if s.center {
		n -= 2 * (s.fftSize / 2)
	}
	return max(n, 0)
}

// Inverse implements Inverter.
func (s *ISTFT) Inverse(spec Spectrogram, hopSize int) ([]float64, error) {
	if hopSize <= 0 {
		return nil, fmt.Errorf("%w: hop size must be positive, got %d", phase.ErrInvalidConfiguration, hopSize)
	}
	if spec.FFTSize != s.fftSize {
		return nil, fmt.Errorf("%w: spectrogram fft size %d, transform fft size %d", phase.ErrShapeMismatch, spec.FFTSize, s.fftSize)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	numFrames := spec.NumFrames()
	if numFrames == 0 {
		return []float64{}, nil
	}

	length := (numFrames-1)*hopSize + s.fftSize
	out := make([]float64, length)
	wss := make([]float64, length)

	coeff := make([]complex128, spec.NumBins())
	frame := make([]float64, s.fftSize)
	for f := 0; f < numFrames; f++ {
		for k := range coeff {
			coeff[k] = spec.Bins[k][f]
		}
		s.ifft.inverse(frame, coeff)

		offset := f * hopSize
		for j, w := range s.window {
			out[offset+j] += frame[j] * w
			wss[offset+j] += w * w
		}
	}

	floor := max(windowSumRatio*floats.Max(wss), windowSumFloor)
	for i, w := range wss {
		out[i] /= max(w, floor)
	}

	if s.center {
		half := s.fftSize / 2
		if len(out) <= 2*half {
			out = out[:0]
		} else {
			out = out[half : len(out)-half]
		}
	}

	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: sample %d is %v", phase.ErrNumericalInstability, i, v)
		}
	}
	return out, nil
}

var _ Inverter = (*ISTFT)(nil)
