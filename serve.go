// ABOUTME: serve command that runs a receiver session
// ABOUTME: Loads configuration, applies flag overrides and runs until interrupted
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/esprx/internal/config"
	"github.com/harperreed/esprx/internal/session"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	servePort       int
	serveOutput     string
	serveTUI        bool
	serveNoAudio    bool
	serveBackend    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive a stream, play it and record it",
	Long: `Listen for the ESP32 sender, play the reconstructed timeline and write
it to a WAV file until interrupted.

Examples:
  esprx serve
  esprx serve --config esprx.yaml --tui
  esprx serve --port 7000 --out take1.wav --no-audio`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return err
		}
		applyServeFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, closeLog, err := newLogger(cfg.Logging, cfg.UI.Enabled)
		if err != nil {
			return err
		}
		defer closeLog()
		slog.SetDefault(logger)

		s, err := session.New(cfg, logger)
		if err != nil {
			logger.Error("Failed to start session", "error", err)
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := s.Run(ctx); err != nil {
			logger.Error("Session failed", "error", err)
			return err
		}
		logger.Info("Receiver stopped")
		return nil
	},
}

// applyServeFlags overrides configuration with flags the user set
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("out") {
		cfg.Recorder.OutputPath = serveOutput
	}
	if flags.Changed("tui") {
		cfg.UI.Enabled = serveTUI
	}
	if flags.Changed("no-audio") {
		cfg.Playback.Enabled = !serveNoAudio
	}
	if flags.Changed("backend") {
		cfg.Playback.Backend = serveBackend
	}
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "YAML configuration file")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 7000, "TCP port for the sender")
	serveCmd.Flags().StringVarP(&serveOutput, "out", "o", "received_high_quality.wav", "output WAV file")
	serveCmd.Flags().BoolVar(&serveTUI, "tui", false, "show the console status view")
	serveCmd.Flags().BoolVar(&serveNoAudio, "no-audio", false, "disable live playback")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "oto", "playback engine: oto or clock")
}
