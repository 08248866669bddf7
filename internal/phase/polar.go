// SPDX-License-Identifier: MIT
package phase

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Polar returns mag * e^(i*phase).
func Polar(mag, phase float64) complex128 {
	return cmplx.Rect(mag, phase)
}

// PolarFrame converts one magnitude frame and one phase frame of equal
// length into a complex spectral frame.
func PolarFrame(mags, phases []float64) ([]complex128, error) {
	if len(mags) != len(phases) {
		return nil, fmt.Errorf("%w: %d magnitudes vs %d phases", ErrShapeMismatch, len(mags), len(phases))
	}
	out := make([]complex128, len(mags))
	for i, m := range mags {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("%w: magnitude at bin %d is %v", ErrNumericalInstability, i, m)
		}
		if p := phases[i]; math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: phase at bin %d is %v", ErrNumericalInstability, i, p)
		}
		out[i] = Polar(m, phases[i])
	}
	return out, nil
}

// PolarFrames applies PolarFrame to every frame. Both sequences must have the
// same number of frames, and every frame the same number of bins.
func PolarFrames(mags, phases [][]float64) ([][]complex128, error) {
	if len(mags) != len(phases) {
		return nil, fmt.Errorf("%w: %d magnitude frames vs %d phase frames", ErrShapeMismatch, len(mags), len(phases))
	}
	out := make([][]complex128, len(mags))
	for i := range mags {
		if i > 0 && len(mags[i]) != len(mags[0]) {
			return nil, fmt.Errorf("%w: frame %d has %d bins, frame 0 has %d", ErrShapeMismatch, i, len(mags[i]), len(mags[0]))
		}
		frame, err := PolarFrame(mags[i], phases[i])
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out[i] = frame
	}
	return out, nil
}
