// ABOUTME: Status API message type definitions
// ABOUTME: JSON envelope, receiver status snapshot and control commands
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried in the envelope
const (
	TypeStatus  = "status"
	TypeCommand = "command"
	TypeError   = "error"
)

// Command names
const (
	CmdSet = "set"
)

// Message is the top-level wrapper for every WebSocket message
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage wraps payload in an envelope
func NewMessage(msgType string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: data}, nil
}

// Decode unmarshals the payload into v
func (m Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to parse %s payload: %w", m.Type, err)
	}
	return nil
}

// Stream describes the configured sender format
type Stream struct {
	SampleRate     int `json:"sample_rate"`
	Channels       int `json:"channels"`
	BytesPerSample int `json:"bytes_per_sample"`
	FormatID       int `json:"format_id"`
}

// Status is the receiver snapshot served at /status and pushed on /ws
type Status struct {
	SessionID      string    `json:"session_id"`
	Started        bool      `json:"started"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	Origin         uint64    `json:"origin"`
	HighestIndex   uint64    `json:"highest_sample_index"`
	LastSeq        uint32    `json:"last_seq"`
	PlaybackCursor uint64    `json:"playback_cursor"`
	WriteCursor    uint64    `json:"write_cursor"`
	SamplesWritten uint64    `json:"samples_written"`
	Packets        uint64    `json:"packets"`
	LateSamples    uint64    `json:"late_samples"`
	ZeroFills      uint64    `json:"zero_fills"`
	LockMisses     uint64    `json:"lock_misses"`

	Stream     Stream  `json:"stream"`
	Gain       float64 `json:"gain"`
	Muted      bool    `json:"muted"`
	OutputPath string  `json:"output_path"`
	Recording  bool    `json:"recording"`
	Monitors   int     `json:"monitors"`
	Uptime     float64 `json:"uptime_seconds"`

	SenderClock *SenderClock `json:"sender_clock,omitempty"`
}

// SenderClock is the estimate of the sender's timestamp clock
type SenderClock struct {
	OffsetMicros int64   `json:"offset_us"`
	DriftPPM     float64 `json:"drift_ppm"`
	JitterMicros float64 `json:"jitter_us"`
	Quality      string  `json:"quality"`
	Samples      int     `json:"samples"`
	Rejected     int     `json:"rejected"`
}

// Buffered returns how many samples sit between the write cursor and the
// highest received index
func (s Status) Buffered() uint64 {
	if !s.Started || s.HighestIndex < s.WriteCursor {
		return 0
	}
	return s.HighestIndex - s.WriteCursor + 1
}

// Command is a control request sent by a monitor
type Command struct {
	Cmd  string   `json:"cmd"`
	Gain *float64 `json:"gain,omitempty"`
	Mute *bool    `json:"mute,omitempty"`
}

// ControlResult is the reply to a control request
type ControlResult struct {
	Gain  float64 `json:"gain"`
	Muted bool    `json:"muted"`
}

// ErrorPayload reports a rejected request
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
