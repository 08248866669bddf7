// SPDX-License-Identifier: MIT
package transport

import "math"

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64 // Exclusive; +Inf runs to Nyquist
}

// DefaultBands split the spectrum the way mixing engineers usually talk about it.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// BandEnergies returns the RMS magnitude of each band for one frame of
// fftSize/2+1 bins. Bands that contain no bins report 0.
func BandEnergies(mags []float64, sampleRate float64, bands []FrequencyBand) []float64 {
	out := make([]float64, len(bands))
	if len(mags) < 2 {
		return out
	}
	counts := make([]int, len(bands))
	binHz := sampleRate / float64(2*(len(mags)-1))

	for k, m := range mags {
		freq := float64(k) * binHz
		for b, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				out[b] += m * m
				counts[b]++
				break
			}
		}
	}

	for b := range out {
		if counts[b] > 0 {
			out[b] = math.Sqrt(out[b] / float64(counts[b]))
		}
	}
	return out
}
