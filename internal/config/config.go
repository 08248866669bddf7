// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the synthesis pipeline. The STFT defaults match
// the settings most magnitude models are trained with.
const (
	DefaultLogLevel   = "info"
	DefaultFFTSize    = 1024      // Transform size, numBins = FFTSize/2+1
	DefaultWindowSize = 512       // Analysis window length, zero padded to FFTSize
	DefaultHopSize    = 256       // Samples between successive frames
	DefaultSampleRate = 44100     // CD-quality audio
	DefaultWindow     = "Hann"    // Analysis and synthesis window
	DefaultBackend    = "gonum"   // FFT backend
	DefaultPhaseWrap  = "true"    // True modulo 2π
	DefaultDuration   = 2.0       // Seconds rendered when no frame count is given
	DefaultOutputDir  = "./renders"
	DefaultBitDepth   = 16
	DefaultDevice     = -1 // -1 represents the system default output device

	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFFTSize    = 65536
	MaxSamples    = 64 // Upper bound on concurrent batch renders
)

// Default returns the built-in configuration used when no file is found.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		STFT: STFTConfig{
			FFTSize:    DefaultFFTSize,
			WindowSize: DefaultWindowSize,
			HopSize:    DefaultHopSize,
			SampleRate: DefaultSampleRate,
			Window:     DefaultWindow,
			Backend:    DefaultBackend,
		},
		Phase: PhaseConfig{
			Wrap: DefaultPhaseWrap,
		},
		Synthesis: SynthesisConfig{
			Duration:  DefaultDuration,
			Samples:   1,
			Normalize: true,
		},
		Output: OutputConfig{
			Dir:      DefaultOutputDir,
			BitDepth: DefaultBitDepth,
			Device:   DefaultDevice,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}
