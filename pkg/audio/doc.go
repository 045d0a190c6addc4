// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and 24-bit sample conversion functions
// Package audio provides fundamental audio types and utilities.
//
// Samples travel through the receiver as normalized float32 values.
// This package converts between that representation and the 24-bit
// integer forms used on the wire and on disk:
//   - left-justified 24-in-32 words (PackLeft24 / UnpackLeft24)
//   - signed 24-bit integers (Int24ToFloat / FloatToInt24)
//   - packed 3-byte little-endian samples
//
// Example:
//
//	word := binary.LittleEndian.Uint32(payload[i*4:])
//	sample := audio.Int24ToFloat(audio.UnpackLeft24(word))
package audio
