// ABOUTME: export command that converts a recording
// ABOUTME: Changes sample rate and bit depth of a finished WAV file
package main

import (
	"fmt"

	"github.com/harperreed/esprx/internal/recorder"
	"github.com/spf13/cobra"
)

var (
	exportRate  int
	exportDepth int
)

var exportCmd = &cobra.Command{
	Use:   "export SRC DST",
	Short: "Convert a recording to another sample rate or bit depth",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := recorder.Export(args[0], args[1], recorder.ExportOptions{
			SampleRate: exportRate,
			BitDepth:   exportDepth,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d Hz, %d bit, %d frames (%s)\n",
			info.Path, info.SampleRate, info.BitDepth, info.Frames, info.Duration)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVarP(&exportRate, "rate", "r", 0, "output sample rate (default: source rate)")
	exportCmd.Flags().IntVarP(&exportDepth, "bits", "b", 0, "output bit depth, 16 or 24 (default: source depth)")
}
