// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"specsynth/internal/config"
	"specsynth/internal/log"
	"specsynth/pkg/build"
)

// options collects the persistent flags. Only flags the user actually set
// override the loaded configuration.
type options struct {
	configPath string
	verbose    bool

	fftSize    int
	hopSize    int
	sampleRate float64
	window     string
	backend    string
	center     bool
	wrap       string
	seed       uint64

	udp    bool
	wsAddr string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file. Defaults to ./config.yaml when present.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	// STFT geometry
	flags.IntVar(&opts.fftSize, "fft-size", config.DefaultFFTSize,
		"FFT size in samples; numBins = fft-size/2+1")
	flags.IntVar(&opts.hopSize, "hop-size", config.DefaultHopSize,
		"Samples between successive frames")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.StringVar(&opts.window, "window", config.DefaultWindow,
		"Window function (Hann, Hamming, Blackman, ...)")
	flags.StringVar(&opts.backend, "backend", config.DefaultBackend,
		"FFT backend: gonum, godsp or gossp")
	flags.BoolVar(&opts.center, "center", false,
		"Trim fft-size/2 samples of padding from both ends of the output")

	// Synthetic phase
	flags.StringVar(&opts.wrap, "wrap", config.DefaultPhaseWrap,
		"Phase wraparound: 'true' (modulo 2π) or 'legacy'")
	flags.Uint64Var(&opts.seed, "seed", 0,
		"Initial phase seed, 0 for a random seed")

	// Frame streaming
	flags.BoolVar(&opts.udp, "udp", false,
		"Publish frame magnitudes over UDP")
	flags.StringVar(&opts.wsAddr, "ws-addr", "",
		"Serve frames to websocket clients on this address (e.g. :8080)")

	rootCmd.AddCommand(
		newSynthCommand(opts),
		newResynthCommand(opts),
		newPlayCommand(opts),
		newIncrementsCommand(opts),
		newDevicesCommand(),
	)

	return rootCmd
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the config file, applies changed flags on top and sets
// the log level.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("fft-size") {
		cfg.STFT.FFTSize = opts.fftSize
	}
	if flags.Changed("hop-size") {
		cfg.STFT.HopSize = opts.hopSize
	}
	if flags.Changed("sample-rate") {
		cfg.STFT.SampleRate = opts.sampleRate
	}
	if flags.Changed("window") {
		cfg.STFT.Window = opts.window
	}
	if flags.Changed("backend") {
		cfg.STFT.Backend = opts.backend
	}
	if flags.Changed("center") {
		cfg.STFT.Center = opts.center
	}
	if flags.Changed("wrap") {
		cfg.Phase.Wrap = opts.wrap
	}
	if flags.Changed("seed") {
		cfg.Phase.Seed = opts.seed
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = opts.udp
	}
	if flags.Changed("ws-addr") {
		cfg.Transport.WebSocketAddr = opts.wsAddr
	}
	if opts.verbose {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("Unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	return cfg, nil
}

// exactArgs is cobra.ExactArgs with a friendlier message.
func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %s", cmd.Name(), what)
		}
		return nil
	}
}
