// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"specsynth/internal/config"
	"specsynth/internal/log"
	"specsynth/internal/specio"
	"specsynth/internal/synth"
	"specsynth/pkg/utils"
)

// renderFlags are shared by synth and resynth.
type renderFlags struct {
	output        string
	samples       int
	bitDepth      int
	normalize     bool
	publishPhases bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "",
		"Output WAV path. Defaults to <output.dir>/<input name>.wav")
	cmd.Flags().IntVarP(&f.samples, "samples", "n", 1,
		"Number of independent phase variations to render")
	cmd.Flags().IntVarP(&f.bitDepth, "bit-depth", "b", config.DefaultBitDepth,
		"PCM bit depth (16, 24 or 32)")
	cmd.Flags().BoolVar(&f.normalize, "normalize", true,
		"Peak normalise the output")
	cmd.Flags().BoolVar(&f.publishPhases, "publish-phases", false,
		"Include synthetic phases in published frames")
}

func (f *renderFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("samples") {
		cfg.Synthesis.Samples = f.samples
	}
	if cmd.Flags().Changed("bit-depth") {
		cfg.Output.BitDepth = f.bitDepth
	}
	if cmd.Flags().Changed("normalize") {
		cfg.Synthesis.Normalize = f.normalize
	}
	return cfg.Validate()
}

func newSynthCommand(opts *options) *cobra.Command {
	var (
		rf        renderFlags
		frames    int
		duration  float64
		magnitude float64
	)

	cmd := &cobra.Command{
		Use:   "synth [magnitudes.spec]",
		Short: "Render a magnitude spectrogram file to WAV with synthetic phase",
		Long: `Render a magnitude spectrogram file to WAV with synthetic phase.

Without an input file a flat spectrum of --magnitude is rendered for
--frames frames (or --duration seconds), which is useful for listening to
the phase model on its own.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frames") {
				cfg.Synthesis.Frames = frames
			}
			if cmd.Flags().Changed("duration") {
				cfg.Synthesis.Duration = duration
			}
			if err := rf.apply(cmd, cfg); err != nil {
				return err
			}

			var (
				mags [][]float64
				base = "flat"
			)
			if len(args) == 1 {
				if mags, err = loadSpectrogram(cfg, args[0]); err != nil {
					return err
				}
				base = baseName(args[0])
			} else {
				n := cfg.Synthesis.Frames
				if n == 0 {
					n = synth.FramesFor(cfg.Synthesis.Duration, cfg.STFT.SampleRate, cfg.STFT.FFTSize, cfg.STFT.HopSize)
				}
				mags = utils.ConstantMagnitudes(n, cfg.STFT.FFTSize/2+1, magnitude)
			}

			results, err := render(cmd.Context(), cfg, mags, rf.publishPhases)
			if err != nil {
				return err
			}
			return writeResults(cfg, results, rf.output, base)
		},
	}

	rf.register(cmd)
	cmd.Flags().IntVar(&frames, "frames", 0,
		"Frames to render without an input file (0 derives from --duration)")
	cmd.Flags().Float64Var(&duration, "duration", config.DefaultDuration,
		"Seconds to render without an input file")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 1,
		"Bin magnitude of the flat spectrum rendered without an input file")

	return cmd
}

func newResynthCommand(opts *options) *cobra.Command {
	var (
		rf       renderFlags
		saveSpec string
		half     bool
	)

	cmd := &cobra.Command{
		Use:   "resynth <audio.wav|audio.flac>",
		Short: "Discard the phase of an audio file and rebuild it with synthetic phase",
		Long: `Discard the phase of an audio file and rebuild it with synthetic phase.

The file is analysed with the forward STFT, its magnitudes are kept and the
phase is replaced by the synthetic trajectory. Use --save-spec to keep the
magnitudes as a spectrogram file for later synth runs.`,
		Args: exactArgs(1, "one audio file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := rf.apply(cmd, cfg); err != nil {
				return err
			}

			mags, err := analyse(cfg, args[0])
			if err != nil {
				return err
			}

			if saveSpec != "" {
				prec := specio.Float32
				if half {
					prec = specio.Float16
				}
				err := specio.WriteFile(saveSpec, &specio.File{
					SampleRate: int(cfg.STFT.SampleRate),
					HopSize:    cfg.STFT.HopSize,
					FFTSize:    cfg.STFT.FFTSize,
					Precision:  prec,
					Frames:     mags,
				})
				if err != nil {
					return fmt.Errorf("failed to save spectrogram: %w", err)
				}
				log.Infof("Saved magnitudes to %s", saveSpec)
			}

			results, err := render(cmd.Context(), cfg, mags, rf.publishPhases)
			if err != nil {
				return err
			}
			return writeResults(cfg, results, rf.output, baseName(args[0])+"-resynth")
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&saveSpec, "save-spec", "",
		"Also write the analysed magnitudes to this spectrogram file")
	cmd.Flags().BoolVar(&half, "half", false,
		"Store saved magnitudes as 16 bit floats")

	return cmd
}
