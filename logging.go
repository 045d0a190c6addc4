// ABOUTME: slog logger construction from the logging configuration
// ABOUTME: Console output is suppressed while the console view owns the terminal
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/harperreed/esprx/internal/config"
)

// newLogger builds the process logger. With the console view enabled logs
// go only to the log file; otherwise to the configured output and the file.
func newLogger(cfg config.LoggingConfig, tui bool) (*slog.Logger, func() error, error) {
	var writers []io.Writer
	var closers []io.Closer

	if !tui {
		switch cfg.Output {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			f, err := os.OpenFile(cfg.Output, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
			if err != nil {
				return nil, nil, fmt.Errorf("error opening log output: %w", err)
			}
			writers = append(writers, f)
			closers = append(closers, f)
		}
	}

	if cfg.File != "" && cfg.File != cfg.Output {
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, fmt.Errorf("error opening log file: %w", err)
		}
		writers = append(writers, f)
		closers = append(closers, f)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return slog.New(handler), closeAll, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
