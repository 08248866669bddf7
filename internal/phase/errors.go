// SPDX-License-Identifier: MIT
package phase

import "errors"

// Error kinds shared by the synthesis core. Callers match them with errors.Is,
// concrete errors wrap them with the offending values.
var (
	// ErrInvalidConfiguration reports a non-positive or nonsensical FFT size,
	// hop size, sample rate or frame count.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrShapeMismatch reports magnitude and phase data whose frame or bin
	// counts disagree.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNumericalInstability reports NaN or Inf values produced by a
	// degenerate configuration or input.
	ErrNumericalInstability = errors.New("numerical instability")
)
