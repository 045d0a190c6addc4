// ABOUTME: Audio decoder package for wire sample formats
// ABOUTME: Provides Decoder interface and the 24-in-32 PCM decoder
// Package decode turns packet payloads into normalized float32 samples.
//
// Only format id 1 (24-bit PCM left-justified in a signed 32-bit
// little-endian word) is supported. Other ids return ErrUnsupportedFormat
// so callers never misdecode a payload.
//
// Example:
//
//	decoder, err := decode.New(header.FormatID)
//	samples, err := decoder.Decode(payload)
package decode
