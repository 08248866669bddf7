// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/dsp/fourier"

	"specsynth/internal/phase"
)

func newIncrementsCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "increments",
		Short: "Print the per-bin phase increment table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			table, err := phase.NewIncrementTable(cfg.STFT.FFTSize, cfg.STFT.HopSize, cfg.STFT.SampleRate)
			if err != nil {
				return err
			}
			fft := fourier.NewFFT(cfg.STFT.FFTSize)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "bin\tfrequency (Hz)\tincrement (rad)\t")
			n := table.Len()
			if limit > 0 {
				n = min(n, limit)
			}
			for k := range n {
				fmt.Fprintf(w, "%d\t%.2f\t%.6f\t\n", k, fft.Freq(k)*cfg.STFT.SampleRate, table.At(k))
			}
			if n < table.Len() {
				fmt.Fprintf(w, "...\t(%d more)\t\t\n", table.Len()-n)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most this many bins (0 for all)")
	return cmd
}
