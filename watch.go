// ABOUTME: watch command that follows a remote receiver
// ABOUTME: Finds the receiver by address or mDNS and shows its status feed in the console view
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/esprx/internal/config"
	"github.com/harperreed/esprx/internal/discovery"
	"github.com/harperreed/esprx/internal/ui"
	"github.com/harperreed/esprx/pkg/protocol"
	"github.com/spf13/cobra"
)

var (
	watchLogFile string
	watchTimeout time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [HOST:PORT]",
	Short: "Show the live status of a running receiver",
	Long: `Connect to a receiver's status API and show its timeline in the
console view. Without an address the first receiver found over mDNS is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logCfg := config.Default().Logging
		logCfg.File = watchLogFile
		logger, closeLog, err := newLogger(logCfg, true)
		if err != nil {
			return err
		}
		defer closeLog()

		addr := ""
		if len(args) == 1 {
			addr = args[0]
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Looking for receivers...")
			addr, err = browse(logger, watchTimeout)
			if err != nil {
				return err
			}
		}

		client := protocol.NewClient(protocol.Config{ServerAddr: addr, Logger: logger})
		if err := client.Connect(); err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		view := ui.New("esprx watch "+addr, client)
		return view.Run(ctx, statusFeed(ctx, client))
	},
}

// browse waits for the first receiver advertising a status API
func browse(logger *slog.Logger, timeout time.Duration) (string, error) {
	disc := discovery.NewManager(discovery.Config{}, logger)
	defer disc.Stop()
	disc.Browse()

	deadline := time.After(timeout)
	for {
		select {
		case r := <-disc.Receivers():
			if r.HTTPPort == 0 {
				logger.Info("Receiver has no status API", "name", r.Name)
				continue
			}
			return r.StatusAddr(), nil
		case <-deadline:
			return "", fmt.Errorf("no receiver found after %s", timeout)
		}
	}
}

// statusFeed forwards snapshots until the client disconnects
func statusFeed(ctx context.Context, c *protocol.Client) <-chan protocol.Status {
	out := make(chan protocol.Status)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.Done():
				return
			case st := <-c.Statuses:
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func init() {
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "esprx-watch.log", "log file path")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 10*time.Second, "how long to browse for receivers")
}
