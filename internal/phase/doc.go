// SPDX-License-Identifier: MIT
/*
Package phase synthesises phase information for magnitude-only STFT data.

A model that predicts magnitude spectra gives no usable phase. This package
builds a plausible one the way a simple phase vocoder would:

  - IncrementTable holds, per frequency bin, the phase (radians) that a
    sinusoid at the bin's center frequency advances over one hop.
  - Generator starts every bin at a random phase and accumulates the table
    frame by frame, wrapping into [0, 2π), then shifts the result into [-π, π).
  - Polar and PolarFrames combine magnitudes and phases into complex spectra.

Bin 0 (DC) never oscillates: its increment and initial phase are both zero,
so after the final shift it sits at -π in every frame.

The table is immutable and may be shared between goroutines. A Generator owns
a random source and must not be used concurrently; create one per goroutine.
*/
package phase
