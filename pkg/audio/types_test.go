// ABOUTME: Tests for audio types
// ABOUTME: Tests 24-bit packing and float conversion
package audio

import "testing"

func TestPackUnpackLeft24(t *testing.T) {
	tests := []struct {
		name  string
		input int32
		word  uint32
	}{
		{"zero", 0, 0},
		{"one", 1, 0x00000100},
		{"minus one", -1, 0xFFFFFF00},
		{"max", Max24Bit, 0x7FFFFF00},
		{"min", Min24Bit, 0x80000000},
		{"half", 1 << 22, 0x40000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := PackLeft24(tt.input)
			if w != tt.word {
				t.Errorf("expected 0x%08x, got 0x%08x", tt.word, w)
			}
			if got := UnpackLeft24(w); got != tt.input {
				t.Errorf("expected %d, got %d", tt.input, got)
			}
		})
	}
}

func TestUnpackIgnoresPadding(t *testing.T) {
	if got := UnpackLeft24(0x400000FF); got != 1<<22 {
		t.Errorf("expected %d, got %d", 1<<22, got)
	}
	if got := UnpackLeft24(0xFFFFFFAB); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestFloatConversion(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int32
	}{
		{"zero", 0, 0},
		{"half", 0.5, 1 << 22},
		{"minus half", -0.5, -(1 << 22)},
		{"clip high", 1.5, Max24Bit},
		{"clip low", -1.5, Min24Bit},
		{"full negative", -1, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloatToInt24(tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}

	if got := Int24ToFloat(1 << 22); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestFramesFor(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, BitDepth: 24}
	if got := f.FramesFor(200); got != 9600 {
		t.Errorf("expected 9600, got %d", got)
	}
}
