// SPDX-License-Identifier: MIT
package stft

import (
	"fmt"
	"strings"
)

// Inverter turns a one-sided complex spectrogram back into samples. The
// synthesizer depends only on this interface so any compliant inverse STFT
// can be substituted.
type Inverter interface {
	Inverse(spec Spectrogram, hopSize int) ([]float64, error)
}

// Forwarder computes a one-sided complex spectrogram from samples.
type Forwarder interface {
	Forward(samples []float64) (Spectrogram, error)
}

// Backend names an FFT implementation.
type Backend int

const (
	// BackendGonum uses gonum.org/v1/gonum/dsp/fourier.
	BackendGonum Backend = iota
	// BackendGoDSP uses github.com/mjibson/go-dsp/fft for the inverse.
	BackendGoDSP
	// BackendGossp uses github.com/r9y9/gossp/stft for the forward transform.
	BackendGossp
)

func (b Backend) String() string {
	switch b {
	case BackendGonum:
		return "gonum"
	case BackendGoDSP:
		return "godsp"
	case BackendGossp:
		return "gossp"
	default:
		return "unknown"
	}
}

// ParseBackend converts a config name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "gonum":
		return BackendGonum, nil
	case "godsp", "go-dsp":
		return BackendGoDSP, nil
	case "gossp":
		return BackendGossp, nil
	default:
		return BackendGonum, fmt.Errorf("unknown fft backend '%s'", name)
	}
}
