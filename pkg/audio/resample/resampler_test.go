// ABOUTME: Tests for the linear resampler
// ABOUTME: Ramp interpolation, output length and chunked continuity
package resample

import (
	"math"
	"testing"
)

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestResampleRamp(t *testing.T) {
	tests := []struct {
		name    string
		in, out int
	}{
		{"same rate", 48000, 48000},
		{"down", 48000, 44100},
		{"up", 44100, 48000},
		{"half", 48000, 24000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.in, tt.out, 1)
			got := r.Resample(nil, ramp(1000))
			ratio := float64(tt.in) / float64(tt.out)

			for k, v := range got {
				want := float64(k) * ratio
				if math.Abs(float64(v)-want) > 1e-2 {
					t.Fatalf("frame %d: expected %.4f, got %.4f", k, want, v)
				}
			}
			if want := r.OutputFrames(1000); len(got) < want-2 || len(got) > want {
				t.Errorf("expected about %d frames, got %d", want, len(got))
			}
		})
	}
}

func TestResampleChunkedMatchesWhole(t *testing.T) {
	in := ramp(4800)

	whole := New(48000, 44100, 1).Resample(nil, in)

	r := New(48000, 44100, 1)
	var chunked []float32
	for i := 0; i < len(in); i += 333 {
		end := i + 333
		if end > len(in) {
			end = len(in)
		}
		chunked = r.Resample(chunked, in[i:end])
	}

	if len(chunked) != len(whole) {
		t.Fatalf("expected %d frames, got %d", len(whole), len(chunked))
	}
	for i := range whole {
		if math.Abs(float64(chunked[i]-whole[i])) > 1e-2 {
			t.Fatalf("frame %d: expected %v, got %v", i, whole[i], chunked[i])
		}
	}
}

func TestResampleInterleaved(t *testing.T) {
	r := New(2, 1, 2)
	// Two channels, left ramps up and right ramps down
	in := []float32{0, 10, 1, 9, 2, 8, 3, 7, 4, 6}
	got := r.Resample(nil, in)

	// The last frame is held until the next call can interpolate past it
	want := []float32{0, 10, 2, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestFlushSameRate(t *testing.T) {
	r := New(48000, 48000, 1)
	got := r.Resample(nil, ramp(10))
	got = r.Flush(got)

	if len(got) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(got))
	}
	if got[9] != 9 {
		t.Errorf("expected final frame 9, got %v", got[9])
	}
	if again := r.Flush(nil); len(again) != 0 {
		t.Errorf("expected second flush to be empty, got %v", again)
	}
}

func TestResampleEmpty(t *testing.T) {
	r := New(48000, 44100, 1)
	if got := r.Resample(nil, nil); len(got) != 0 {
		t.Errorf("expected no output, got %d", len(got))
	}
}
