// ABOUTME: Entry point for the esprx receiver
// ABOUTME: Builds the command tree and runs it
package main

import (
	"fmt"
	"os"

	"github.com/harperreed/esprx/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "esprx",
	Short: "Receive, monitor and record an ESP32 24-bit audio stream",
	Long: `esprx accepts a TCP stream of timestamped 24-bit PCM packets from an
ESP32 sender, rebuilds the sample timeline from each packet's absolute
index, plays it live with a fixed latency and writes a gap-free WAV file.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", version.String(), version.Manufacturer)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, infoCmd, exportCmd, watchCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
