// ABOUTME: Receiver configuration loaded from YAML
// ABOUTME: Defaults, per-section validation and duration helpers
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harperreed/esprx/pkg/audio"
	"gopkg.in/yaml.v3"
)

// Config represents the complete receiver configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	HTTP      HTTPConfig      `yaml:"http"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	UI        UIConfig        `yaml:"ui"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains the TCP listener configuration
type ServerConfig struct {
	BindAddress     string `yaml:"bind_address"`
	Port            int    `yaml:"port"`
	AcceptTimeoutMs int    `yaml:"accept_timeout_ms"`
	ReadTimeoutMs   int    `yaml:"read_timeout_ms"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_ms"`
}

// AudioConfig is the stream format the sender is expected to use
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate"`
	Channels       int `yaml:"channels"`
	BytesPerSample int `yaml:"bytes_per_sample"`
	FormatID       int `yaml:"format_id"`
	BufferSeconds  int `yaml:"buffer_seconds"`
}

// PlaybackConfig controls live monitoring
type PlaybackConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Backend     string  `yaml:"backend"` // oto or clock
	LatencyMs   int     `yaml:"latency_ms"`
	BlockFrames int     `yaml:"block_frames"`
	Gain        float64 `yaml:"gain"`
}

// RecorderConfig controls the persisted file
type RecorderConfig struct {
	OutputPath       string `yaml:"output_path"`
	BitDepth         int    `yaml:"bit_depth"`
	MaxChunk         int    `yaml:"max_chunk"`
	ZeroFillFrames   int    `yaml:"zero_fill_frames"`
	MissingTimeoutMs int    `yaml:"missing_timeout_ms"`
	PollIntervalMs   int    `yaml:"poll_interval_ms"`
}

// HTTPConfig contains status API configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DiscoveryConfig controls mDNS advertisement
type DiscoveryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// UIConfig controls the console status view
type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"` // stdout, stderr or a file path
	File   string `yaml:"file"`   // copy of the log kept on disk, empty disables
}

// Default returns the stock configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:     "0.0.0.0",
			Port:            7000,
			AcceptTimeoutMs: 1000,
			ReadTimeoutMs:   5000,
			ShutdownTimeout: 5000,
		},
		Audio: AudioConfig{
			SampleRate:     48000,
			Channels:       1,
			BytesPerSample: 4,
			FormatID:       1,
			BufferSeconds:  8,
		},
		Playback: PlaybackConfig{
			Enabled:     true,
			Backend:     "oto",
			LatencyMs:   200,
			BlockFrames: 1024,
			Gain:        1.0,
		},
		Recorder: RecorderConfig{
			OutputPath:       "received_high_quality.wav",
			BitDepth:         24,
			MaxChunk:         8192,
			ZeroFillFrames:   1024,
			MissingTimeoutMs: 250,
			PollIntervalMs:   5,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    8080,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
			File:   "esprx.log",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, config.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}
	if err := c.Recorder.Validate(); err != nil {
		return fmt.Errorf("recorder config: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}
	if s.AcceptTimeoutMs < 10 {
		return fmt.Errorf("accept_timeout_ms must be at least 10, got %d", s.AcceptTimeoutMs)
	}
	if s.ReadTimeoutMs < 10 {
		return fmt.Errorf("read_timeout_ms must be at least 10, got %d", s.ReadTimeoutMs)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout_ms cannot be negative, got %d", s.ShutdownTimeout)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 384000 {
		return fmt.Errorf("sample_rate must be between 8000 and 384000, got %d", a.SampleRate)
	}
	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}
	if a.BytesPerSample != 4 {
		return fmt.Errorf("bytes_per_sample must be 4, got %d", a.BytesPerSample)
	}
	if a.FormatID != 1 {
		return fmt.Errorf("format_id must be 1 (24-in-32 left-justified PCM), got %d", a.FormatID)
	}
	if a.BufferSeconds < 1 || a.BufferSeconds > 120 {
		return fmt.Errorf("buffer_seconds must be between 1 and 120, got %d", a.BufferSeconds)
	}
	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.Backend != "oto" && p.Backend != "clock" {
		return fmt.Errorf("backend must be oto or clock, got %q", p.Backend)
	}
	if p.LatencyMs < 0 {
		return fmt.Errorf("latency_ms cannot be negative, got %d", p.LatencyMs)
	}
	if p.BlockFrames < 64 || p.BlockFrames > 16384 {
		return fmt.Errorf("block_frames must be between 64 and 16384, got %d", p.BlockFrames)
	}
	if p.Gain < 0.01 || p.Gain > 16 {
		return fmt.Errorf("gain must be between 0.01 and 16, got %f", p.Gain)
	}
	return nil
}

// Validate validates recorder configuration
func (r *RecorderConfig) Validate() error {
	if r.OutputPath == "" {
		return fmt.Errorf("output_path cannot be empty")
	}
	if r.BitDepth != 16 && r.BitDepth != 24 {
		return fmt.Errorf("bit_depth must be 16 or 24, got %d", r.BitDepth)
	}
	if r.MaxChunk < 1 {
		return fmt.Errorf("max_chunk must be positive, got %d", r.MaxChunk)
	}
	if r.ZeroFillFrames < 1 {
		return fmt.Errorf("zero_fill_frames must be positive, got %d", r.ZeroFillFrames)
	}
	if r.MissingTimeoutMs < 1 {
		return fmt.Errorf("missing_timeout_ms must be positive, got %d", r.MissingTimeoutMs)
	}
	if r.PollIntervalMs < 1 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", r.PollIntervalMs)
	}
	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}
		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	return nil
}

// ListenAddress returns host:port for the TCP listener
func (s *ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

// GetAcceptTimeout returns the accept poll interval
func (s *ServerConfig) GetAcceptTimeout() time.Duration {
	return time.Duration(s.AcceptTimeoutMs) * time.Millisecond
}

// GetReadTimeout returns the per-connection read deadline
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// GetShutdownTimeout returns how long shutdown waits for roles to exit
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Millisecond
}

// RingCapacity returns the ring size in samples
func (a *AudioConfig) RingCapacity() int {
	return a.SampleRate * a.Channels * a.BufferSeconds
}

// LatencyFrames converts the playout latency to frames at rate
func (p *PlaybackConfig) LatencyFrames(rate int) uint64 {
	return uint64(audio.Format{SampleRate: rate, Channels: 1}.FramesFor(p.LatencyMs))
}

// GetMissingTimeout returns the writer starvation timeout
func (r *RecorderConfig) GetMissingTimeout() time.Duration {
	return time.Duration(r.MissingTimeoutMs) * time.Millisecond
}

// GetPollInterval returns the writer fallback wake interval
func (r *RecorderConfig) GetPollInterval() time.Duration {
	return time.Duration(r.PollIntervalMs) * time.Millisecond
}

// ListenAddress returns host:port for the status API
func (h *HTTPConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}
