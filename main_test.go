// ABOUTME: Tests for the command line entry points
// ABOUTME: Logger construction, flag overrides and the info command
package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harperreed/esprx/internal/config"
	"github.com/harperreed/esprx/internal/recorder"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestNewLoggerTUIWritesOnlyToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esprx.log")
	cfg := config.LoggingConfig{Level: "info", Format: "json", Output: "stdout", File: path}

	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	logger.Info("Timeline origin set", "origin", 1000)
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), `"origin":1000`) {
		t.Errorf("expected json record in log file, got %s", data)
	}
}

func TestNewLoggerLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esprx.log")
	cfg := config.LoggingConfig{Level: "warn", Format: "text", Output: path}

	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	closeLog()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "quiet") {
		t.Error("expected info record to be filtered")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("expected warn record")
	}
}

func TestNewLoggerBadPath(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "text", Output: "stdout", File: filepath.Join(t.TempDir(), "no", "such", "file.log")}
	if _, _, err := newLogger(cfg, false); err == nil {
		t.Error("expected error for unwritable log file")
	}
}

func TestApplyServeFlags(t *testing.T) {
	cfg := config.Default()
	if err := serveCmd.Flags().Parse([]string{"--port", "7100", "--out", "take.wav", "--no-audio"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	applyServeFlags(serveCmd, cfg)

	if cfg.Server.Port != 7100 {
		t.Errorf("expected port 7100, got %d", cfg.Server.Port)
	}
	if cfg.Recorder.OutputPath != "take.wav" {
		t.Errorf("expected take.wav, got %s", cfg.Recorder.OutputPath)
	}
	if cfg.Playback.Enabled {
		t.Error("expected playback disabled")
	}
	if cfg.UI.Enabled {
		t.Error("expected console view to stay disabled")
	}
}

func TestInfoCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	sink, err := recorder.CreateWAV(path, 48000, 24)
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	if err := sink.WriteSamples(make([]float32, 24000)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"info", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("info failed: %v", err)
	}

	for _, want := range []string{"48000 Hz", "Bit depth:   24", "Frames:      24000", "500ms"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "take.wav")
	sink, err := recorder.CreateWAV(src, 48000, 24)
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	if err := sink.WriteSamples(make([]float32, 48000)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	dst := filepath.Join(dir, "take-16k.wav")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"export", src, dst, "--rate", "16000", "--bits", "16"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	info, err := recorder.Inspect(dst)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if info.SampleRate != 16000 || info.BitDepth != 16 || info.Frames != 16000 {
		t.Errorf("expected 16000 Hz 16 bit 16000 frames, got %+v", info)
	}
	if !strings.Contains(out.String(), "16000 Hz, 16 bit") {
		t.Errorf("expected summary line, got %s", out.String())
	}
}
