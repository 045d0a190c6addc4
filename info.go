// ABOUTME: info command that describes a recorded WAV file
// ABOUTME: Prints format, frame count and duration
package main

import (
	"fmt"

	"github.com/harperreed/esprx/internal/recorder"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Show the format and length of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := recorder.Inspect(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File:        %s\n", info.Path)
		fmt.Fprintf(out, "Sample rate: %d Hz\n", info.SampleRate)
		fmt.Fprintf(out, "Bit depth:   %d\n", info.BitDepth)
		fmt.Fprintf(out, "Channels:    %d\n", info.Channels)
		fmt.Fprintf(out, "Frames:      %d\n", info.Frames)
		fmt.Fprintf(out, "Duration:    %s\n", info.Duration)
		return nil
	},
}
