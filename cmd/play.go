// SPDX-License-Identifier: MIT
package cmd

import (
	"github.com/spf13/cobra"

	"specsynth/internal/audio"
	"specsynth/internal/log"
)

func newPlayCommand(opts *options) *cobra.Command {
	var (
		device     int
		lowLatency bool
	)

	cmd := &cobra.Command{
		Use:   "play <magnitudes.spec|audio.wav|audio.flac>",
		Short: "Synthesise and play through an output device",
		Args:  exactArgs(1, "one spectrogram or audio file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				cfg.Output.Device = device
			}
			cfg.Synthesis.Samples = 1
			if err := cfg.Validate(); err != nil {
				return err
			}

			mags, err := loadMagnitudes(cfg, args[0])
			if err != nil {
				return err
			}
			results, err := render(cmd.Context(), cfg, mags, false)
			if err != nil {
				return err
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			player, err := audio.NewPlayer(cfg.Output.Device, cfg.STFT.SampleRate, lowLatency)
			if err != nil {
				return err
			}
			defer player.Close()

			log.Infof("Playing %s on %s", args[0], player.DeviceName())
			return player.Play(cmd.Context(), results[0].Samples)
		},
	}

	cmd.Flags().IntVarP(&device, "device", "d", audio.DefaultDeviceID,
		"Output device ID. Use the 'devices' command to see available devices.")
	cmd.Flags().BoolVarP(&lowLatency, "low-latency", "l", false,
		"Use the device's low latency setting")

	return cmd
}
