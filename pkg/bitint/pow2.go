// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT frames.

	fftSize := bitint.NextPowerOfTwo(windowSize) // 1000 -> 1024
	if !bitint.IsPowerOfTwo(fftSize) { ... }

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves: for 8, bits.Len(7) is 3 and 1<<3 is 8,
where bits.Len(8) would have given 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has one bit set, so clearing its lowest set bit with n&(n-1) leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
