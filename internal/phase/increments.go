// SPDX-License-Identifier: MIT
package phase

import (
	"fmt"
	"math"

	"specsynth/internal/log"
	"specsynth/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// IncrementTable is the per-bin phase advance, in radians, over one hop.
// It is computed once per (fftSize, hopSize, sampleRate) and never mutated.
type IncrementTable struct {
	fftSize    int
	hopSize    int
	sampleRate float64
	inc        []float64
}

// NewIncrementTable computes the hop increment for each of the fftSize/2+1
// bins. A bin's period in samples is sampleRate/freq and its increment is
// (hopSize/period)*2π. Bin 0 has no period, so its frequency is taken as 1 Hz
// and its period as fftSize before the increment is forced to exactly zero.
func NewIncrementTable(fftSize, hopSize int, sampleRate float64) (*IncrementTable, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("%w: fft size must be positive, got %d", ErrInvalidConfiguration, fftSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("%w: hop size must be positive, got %d", ErrInvalidConfiguration, hopSize)
	}
	if hopSize > fftSize {
		return nil, fmt.Errorf("%w: hop size %d exceeds fft size %d", ErrInvalidConfiguration, hopSize, fftSize)
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate must be positive and finite, got %v", ErrInvalidConfiguration, sampleRate)
	}
	if !bitint.IsPowerOfTwo(fftSize) {
		log.Warnf("Phase: fft size %d is not a power of two, %d transforms faster", fftSize, bitint.NextPowerOfTwo(fftSize))
	}

	numBins := fftSize/2 + 1
	f := fourier.NewFFT(fftSize)

	inc := make([]float64, numBins)
	for i := range inc {
		freq := f.Freq(i) * sampleRate
		if i == 0 {
			freq = 1
		}
		period := sampleRate / freq
		if i == 0 {
			period = float64(fftSize)
		}
		inc[i] = (float64(hopSize) / period) * 2 * math.Pi
	}
	inc[0] = 0.0

	for i, v := range inc {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: increment for bin %d is %v", ErrNumericalInstability, i, v)
		}
	}

	return &IncrementTable{
		fftSize:    fftSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
		inc:        inc,
	}, nil
}

// Len returns the number of bins, fftSize/2+1.
func (t *IncrementTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.inc)
}

// At returns the increment for bin i.
func (t *IncrementTable) At(i int) float64 {
	return t.inc[i]
}

// Values returns a copy of the increments.
func (t *IncrementTable) Values() []float64 {
	out := make([]float64, len(t.inc))
	copy(out, t.inc)
	return out
}

func (t *IncrementTable) FFTSize() int        { return t.fftSize }
func (t *IncrementTable) HopSize() int        { return t.hopSize }
func (t *IncrementTable) SampleRate() float64 { return t.sampleRate }
