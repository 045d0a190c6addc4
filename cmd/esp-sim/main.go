// ABOUTME: Entry point for the ESP32 sender simulator
// ABOUTME: Streams a test tone to a receiver with optional reordering, drops and corrupt headers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/esprx/internal/discovery"
	"github.com/harperreed/esprx/internal/sim"
	"github.com/spf13/cobra"
)

var (
	addr          string
	freq          float64
	amplitude     float64
	sampleRate    int
	frameCount    int
	startIndex    uint64
	packets       int
	reorder       bool
	dropEvery     int
	badMagicEvery int
	fast          bool
	debug         bool
)

var rootCmd = &cobra.Command{
	Use:   "esp-sim",
	Short: "Simulate an ESP32 audio sender",
	Long: `esp-sim connects to an esprx receiver and streams a sine tone as
24-bit left-justified PCM packets at real-time pace. Without --addr the
first receiver found over mDNS is used.`,
	SilenceUsage: true,
	RunE:         run,
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	target := addr
	if target == "" {
		var err error
		if target, err = browse(logger, 10*time.Second); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, err := d.DialContext(dialCtx, "tcp", target)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer conn.Close()

	logger.Info("Streaming test tone", "addr", target, "freq", freq, "rate", sampleRate, "frames", frameCount)

	sender := sim.NewSender(sim.Config{
		SampleRate:    sampleRate,
		FrameCount:    frameCount,
		StartIndex:    startIndex,
		Packets:       packets,
		Realtime:      !fast,
		Reorder:       reorder,
		DropEvery:     dropEvery,
		BadMagicEvery: badMagicEvery,
	}, sim.NewTone(freq, amplitude, sampleRate), logger)

	st, err := sender.Run(ctx, conn)
	logger.Info("Sender stopped", "sent", st.Sent, "dropped", st.Dropped, "bad_magic", st.BadMagic, "bytes", st.Bytes)
	return err
}

func browse(logger *slog.Logger, timeout time.Duration) (string, error) {
	disc := discovery.NewManager(discovery.Config{}, logger)
	defer disc.Stop()
	disc.Browse()

	select {
	case r := <-disc.Receivers():
		logger.Info("Found receiver", "name", r.Name, "host", r.Host, "port", r.Port)
		return net.JoinHostPort(r.Host, fmt.Sprint(r.Port)), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no receiver found after %s", timeout)
	}
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&addr, "addr", "a", "", "receiver address HOST:PORT")
	f.Float64Var(&freq, "freq", 440, "tone frequency in Hz")
	f.Float64Var(&amplitude, "amplitude", 0.5, "tone amplitude (0-1)")
	f.IntVar(&sampleRate, "rate", 48000, "sample rate")
	f.IntVar(&frameCount, "frames", 1024, "frames per packet")
	f.Uint64Var(&startIndex, "start-index", 0, "absolute index of the first sample")
	f.IntVar(&packets, "packets", 0, "stop after this many packets (0 = until interrupted)")
	f.BoolVar(&reorder, "reorder", false, "swap every pair of packets")
	f.IntVar(&dropEvery, "drop", 0, "drop every Nth packet")
	f.IntVar(&badMagicEvery, "bad-magic-every", 0, "send a corrupt header before every Nth packet")
	f.BoolVar(&fast, "fast", false, "send as fast as possible instead of real-time")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
