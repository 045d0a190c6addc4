// ABOUTME: Tests for the left-justified 24-bit decoder
// ABOUTME: Round trip, sign preservation and format rejection
package decode

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/harperreed/esprx/pkg/audio"
)

func TestNew(t *testing.T) {
	d, err := New(FormatLeft24)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if d.BytesPerSample() != 4 {
		t.Errorf("expected 4 bytes per sample, got %d", d.BytesPerSample())
	}

	if _, err := New(2); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLeft24RoundTrip(t *testing.T) {
	// Sweep the 24-bit range including both extremes and negatives
	var values []int32
	for v := int32(audio.Min24Bit); v <= audio.Max24Bit-4093; v += 4093 {
		values = append(values, v)
	}
	values = append(values, audio.Max24Bit, -1, 0, 1)

	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], audio.PackLeft24(v))
	}

	samples, err := Left24{}.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(samples) != len(values) {
		t.Fatalf("expected %d samples, got %d", len(values), len(samples))
	}

	for i, v := range values {
		expected := float32(float64(v) / (1 << 23))
		if samples[i] != expected {
			t.Fatalf("value %d: expected %v, got %v", v, expected, samples[i])
		}
		if (v < 0) != (samples[i] < 0) {
			t.Fatalf("value %d: sign lost", v)
		}
	}
}

func TestLeft24Half(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, 0x40000000)
	binary.LittleEndian.PutUint32(data[4:], 0xC0000000)

	samples, err := Left24{}.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if samples[0] != 0.5 {
		t.Errorf("expected 0.5, got %v", samples[0])
	}
	if samples[1] != -0.5 {
		t.Errorf("expected -0.5, got %v", samples[1])
	}
}

func TestLeft24RejectsPartialWord(t *testing.T) {
	if _, err := (Left24{}).Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for partial word")
	}
}
