// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"specsynth/internal/audio"
	"specsynth/internal/tui"
)

func newDevicesCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if !pick {
				return audio.ListDevices(cmd.OutOrStdout())
			}

			sel, ok, err := tui.PickDevice(audio.HostDevices)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected [%d] %s at %.0f Hz\n", sel.DeviceID, sel.DeviceName, sel.SampleRate)
			fmt.Fprintf(cmd.OutOrStdout(), "Use: play --device %d --sample-rate %.0f <file>\n", sel.DeviceID, sel.SampleRate)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pick, "pick", "p", false, "Open the interactive device picker")
	return cmd
}
