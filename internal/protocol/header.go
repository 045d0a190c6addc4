// ABOUTME: Binary packet header codec for the ESP32 audio stream
// ABOUTME: Decodes and encodes the fixed 34-byte little-endian header
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed size of every packet header on the wire
	HeaderSize = 34

	// Magic marks the start of a header ("ESP2")
	Magic uint32 = 0x45535032

	// FormatInt32Left24 is 24-bit PCM left-justified in a signed 32-bit word
	FormatInt32Left24 uint16 = 1

	// MaxPayloadSize bounds a single packet payload
	MaxPayloadSize = 1 << 20
)

// ErrInvalidMagic is returned when the first four header bytes are not Magic
var ErrInvalidMagic = errors.New("invalid header magic")

// Header describes one packet of audio
type Header struct {
	Magic            uint32
	Seq              uint32
	FirstSampleIndex uint64
	Timestamp        uint64 // sender clock, informational
	FrameCount       uint16
	Channels         uint8
	BytesPerSample   uint8
	SampleRate       uint32
	FormatID         uint16
}

// Decode parses a header from the first HeaderSize bytes of b.
// On a magic mismatch the returned header still carries the raw fields.
func Decode(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("short header: %d bytes", len(b))
	}

	h := Header{
		Magic:            binary.LittleEndian.Uint32(b[0:4]),
		Seq:              binary.LittleEndian.Uint32(b[4:8]),
		FirstSampleIndex: binary.LittleEndian.Uint64(b[8:16]),
		Timestamp:        binary.LittleEndian.Uint64(b[16:24]),
		FrameCount:       binary.LittleEndian.Uint16(b[24:26]),
		Channels:         b[26],
		BytesPerSample:   b[27],
		SampleRate:       binary.LittleEndian.Uint32(b[28:32]),
		FormatID:         binary.LittleEndian.Uint16(b[32:34]),
	}

	if h.Magic != Magic {
		return h, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	return h, nil
}

// Encode serializes the header. A zero Magic is written as Magic.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	h.Put(b)
	return b
}

// Put writes the header into b, which must hold HeaderSize bytes
func (h Header) Put(b []byte) {
	magic := h.Magic
	if magic == 0 {
		magic = Magic
	}
	binary.LittleEndian.PutUint32(b[0:4], magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Seq)
	binary.LittleEndian.PutUint64(b[8:16], h.FirstSampleIndex)
	binary.LittleEndian.PutUint64(b[16:24], h.Timestamp)
	binary.LittleEndian.PutUint16(b[24:26], h.FrameCount)
	b[26] = h.Channels
	b[27] = h.BytesPerSample
	binary.LittleEndian.PutUint32(b[28:32], h.SampleRate)
	binary.LittleEndian.PutUint16(b[32:34], h.FormatID)
}

// PayloadSize is the byte length of the payload that follows the header.
// It always comes from the header's own fields.
func (h Header) PayloadSize() int {
	return int(h.FrameCount) * int(h.Channels) * int(h.BytesPerSample)
}

// Samples returns the number of samples carried (frames x channels)
func (h Header) Samples() int {
	return int(h.FrameCount) * int(h.Channels)
}

func (h Header) String() string {
	return fmt.Sprintf("seq=%d first=%d frames=%d ch=%d bps=%d rate=%d fmt=%d",
		h.Seq, h.FirstSampleIndex, h.FrameCount, h.Channels, h.BytesPerSample, h.SampleRate, h.FormatID)
}

// Expect is the stream format a receiver is configured for
type Expect struct {
	SampleRate     uint32
	Channels       uint8
	BytesPerSample uint8
	FormatID       uint16
}

// Mismatch describes one header field that differs from the expected format
type Mismatch struct {
	Field string
	Got   uint64
	Want  uint64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s=%d (expected %d)", m.Field, m.Got, m.Want)
}

// CheckFormat compares the declared format fields against e.
// Mismatches are advisory; framing never depends on them.
func (h Header) CheckFormat(e Expect) []Mismatch {
	var out []Mismatch
	if h.SampleRate != e.SampleRate {
		out = append(out, Mismatch{"sample_rate", uint64(h.SampleRate), uint64(e.SampleRate)})
	}
	if h.Channels != e.Channels {
		out = append(out, Mismatch{"channels", uint64(h.Channels), uint64(e.Channels)})
	}
	if h.BytesPerSample != e.BytesPerSample {
		out = append(out, Mismatch{"bytes_per_sample", uint64(h.BytesPerSample), uint64(e.BytesPerSample)})
	}
	if h.FormatID != e.FormatID {
		out = append(out, Mismatch{"format_id", uint64(h.FormatID), uint64(e.FormatID)})
	}
	return out
}
