// ABOUTME: Audio type definitions
// ABOUTME: Defines the stream format and 24-bit sample conversions
package audio

import "math"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// FullScale24 is the divisor that maps a 24-bit value into [-1, 1)
	FullScale24 = 1 << 23
)

// Format describes a mono or interleaved PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// FramesFor converts a duration in milliseconds into a frame count
func (f Format) FramesFor(ms int) int {
	return f.SampleRate * ms / 1000
}

// Int24ToFloat normalizes a signed 24-bit value
func Int24ToFloat(v int32) float32 {
	return float32(v) / FullScale24
}

// FloatToInt24 scales a normalized sample into the 24-bit range with clipping
func FloatToInt24(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	scaled := math.Round(float64(f) * FullScale24)
	if scaled > Max24Bit {
		return Max24Bit
	}
	if scaled < Min24Bit {
		return Min24Bit
	}
	return int32(scaled)
}

// PackLeft24 places a 24-bit value in the upper 24 bits of a 32-bit word
func PackLeft24(v int32) uint32 {
	return uint32(v << 8)
}

// UnpackLeft24 recovers the signed 24-bit value with an arithmetic shift
func UnpackLeft24(w uint32) int32 {
	return int32(w) >> 8
}

// Clamp limits a normalized sample to [-1, 1]
func Clamp(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
