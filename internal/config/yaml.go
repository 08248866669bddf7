// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"specsynth/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	STFT      STFTConfig      `yaml:"stft"`      // Transform geometry shared by analysis and synthesis.
	Phase     PhaseConfig     `yaml:"phase"`     // Synthetic phase settings.
	Synthesis SynthesisConfig `yaml:"synthesis"` // Render length and post-processing.
	Output    OutputConfig    `yaml:"output"`    // Where rendered audio goes.
	Transport TransportConfig `yaml:"transport"` // Frame streaming settings (e.g., UDP).
}

// STFTConfig holds the transform geometry. The synthesis side always uses
// FFTSize-long windows; WindowSize only affects the forward transform.
type STFTConfig struct {
	FFTSize    int     `yaml:"fft_size"`    // Transform size, a power of two is recommended.
	WindowSize int     `yaml:"window_size"` // Analysis window length, 0 or anything above FFTSize means FFTSize.
	HopSize    int     `yaml:"hop_size"`    // Samples between frames, must not exceed FFTSize.
	SampleRate float64 `yaml:"sample_rate"` // Sample rate in Hz.
	Window     string  `yaml:"window"`      // Window function name (e.g., "Hann", "Hamming").
	Backend    string  `yaml:"backend"`     // FFT backend: "gonum", "godsp" or "gossp".
	Center     bool    `yaml:"center"`      // Trim the FFTSize/2 padding from both ends.
}

// PhaseConfig holds synthetic phase settings.
type PhaseConfig struct {
	Wrap string `yaml:"wrap"` // "true" for modulo 2π, "legacy" for the (x mod 2)·π variant.
	Seed uint64 `yaml:"seed"` // Initial phase seed, 0 picks a random seed per run.
}

// SynthesisConfig controls how much audio is rendered.
type SynthesisConfig struct {
	Frames    int     `yaml:"frames"`    // Explicit frame count, 0 derives it from Duration.
	Duration  float64 `yaml:"duration"`  // Seconds to render when Frames is 0.
	Samples   int     `yaml:"samples"`   // Independent phase variations rendered per run.
	Normalize bool    `yaml:"normalize"` // Peak normalise the rendered buffer.
}

// OutputConfig holds render destinations.
type OutputConfig struct {
	Dir      string `yaml:"dir"`       // Directory to write rendered WAV files to.
	BitDepth int    `yaml:"bit_depth"` // PCM bit depth for rendered audio (16, 24 or 32).
	Device   int    `yaml:"device"`    // PortAudio output device index for playback (-1 for default).
}

// TransportConfig holds settings related to streaming synthesis frames.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending frame magnitudes over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for the frame websocket, empty disables it.
}

// AnalysisWindow returns the effective analysis window length.
func (s STFTConfig) AnalysisWindow() int {
	if s.WindowSize <= 0 || s.WindowSize > s.FFTSize {
		return s.FFTSize
	}
	return s.WindowSize
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"specsynth.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("configuration: loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	s := c.STFT
	if s.FFTSize <= 0 || s.FFTSize > MaxFFTSize {
		return fmt.Errorf("%w: stft.fft_size must be in (0, %d], got %d", ErrInvalidConfig, MaxFFTSize, s.FFTSize)
	}
	if s.WindowSize < 0 {
		return fmt.Errorf("%w: stft.window_size must not be negative, got %d", ErrInvalidConfig, s.WindowSize)
	}
	if s.HopSize <= 0 || s.HopSize > s.FFTSize {
		return fmt.Errorf("%w: stft.hop_size must be in (0, fft_size], got %d", ErrInvalidConfig, s.HopSize)
	}
	if math.IsNaN(s.SampleRate) || s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: stft.sample_rate must be in [%d, %d], got %v", ErrInvalidConfig, MinSampleRate, MaxSampleRate, s.SampleRate)
	}

	switch strings.ToLower(c.Phase.Wrap) {
	case "", "true", "modulo", "legacy":
	default:
		return fmt.Errorf("%w: phase.wrap must be \"true\" or \"legacy\", got %q", ErrInvalidConfig, c.Phase.Wrap)
	}

	if c.Synthesis.Frames < 0 {
		return fmt.Errorf("%w: synthesis.frames must not be negative, got %d", ErrInvalidConfig, c.Synthesis.Frames)
	}
	if c.Synthesis.Frames == 0 && !(c.Synthesis.Duration > 0) {
		return fmt.Errorf("%w: synthesis.duration must be positive when frames is 0", ErrInvalidConfig)
	}
	if c.Synthesis.Samples < 1 || c.Synthesis.Samples > MaxSamples {
		return fmt.Errorf("%w: synthesis.samples must be in [1, %d], got %d", ErrInvalidConfig, MaxSamples, c.Synthesis.Samples)
	}

	switch c.Output.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: output.bit_depth must be 16, 24 or 32, got %d", ErrInvalidConfig, c.Output.BitDepth)
	}
	if c.Output.Device < DefaultDevice {
		return fmt.Errorf("%w: output.device must be -1 or a device index, got %d", ErrInvalidConfig, c.Output.Device)
	}

	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalidConfig)
		}
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address '%s' appears invalid (missing port?)", ErrInvalidConfig, c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalidConfig)
		}
	}

	return nil
}

// applyEnvOverrides replaces file values with ENV_* variables when they are
// set and parse. Unparseable values are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Debugf("configuration: overriding debug from env: %v", bVal)
		} else {
			log.Warnf("configuration: ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Debugf("configuration: overriding log_level from env: %s", val)
	}

	// ENV_{FFT,HOP,SAMPLE,PHASE}_{...}
	// These shape the synthesis itself.

	// ENV_FFT_SIZE
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.STFT.FFTSize = iVal
			log.Debugf("configuration: overriding stft.fft_size from env: %d", iVal)
		} else {
			log.Warnf("configuration: ignoring ENV_FFT_SIZE=%q: %v", val, err)
		}
	}
	// ENV_HOP_SIZE
	if val, ok := os.LookupEnv("ENV_HOP_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.STFT.HopSize = iVal
			log.Debugf("configuration: overriding stft.hop_size from env: %d", iVal)
		} else {
			log.Warnf("configuration: ignoring ENV_HOP_SIZE=%q: %v", val, err)
		}
	}
	// ENV_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.STFT.SampleRate = fVal
			log.Debugf("configuration: overriding stft.sample_rate from env: %v", fVal)
		} else {
			log.Warnf("configuration: ignoring ENV_SAMPLE_RATE=%q: %v", val, err)
		}
	}
	// ENV_PHASE_WRAP
	if val, ok := os.LookupEnv("ENV_PHASE_WRAP"); ok {
		cfg.Phase.Wrap = val
		log.Debugf("configuration: overriding phase.wrap from env: %s", val)
	}
	// ENV_PHASE_SEED
	if val, ok := os.LookupEnv("ENV_PHASE_SEED"); ok {
		if uVal, err := strconv.ParseUint(val, 10, 64); err == nil {
			cfg.Phase.Seed = uVal
			log.Debugf("configuration: overriding phase.seed from env: %d", uVal)
		} else {
			log.Warnf("configuration: ignoring ENV_PHASE_SEED=%q: %v", val, err)
		}
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Debugf("configuration: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Debugf("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Debugf("configuration: overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
