// ABOUTME: Tests for the circular sample ring
// ABOUTME: Wraparound, order independence, drain and clear behavior
package timeline

import (
	"testing"
)

func ramp(n int, base float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = base + float32(i)/1000
	}
	return out
}

func TestNewRingEmpty(t *testing.T) {
	r := NewRing(16)
	if r.Cap() != 16 {
		t.Fatalf("expected capacity 16, got %d", r.Cap())
	}
	for i := uint64(0); i < 16; i++ {
		if _, tag := r.ReadSlot(i); tag != Empty {
			t.Fatalf("slot %d: expected empty, got tag %d", i, tag)
		}
	}
}

func TestRingWriteRead(t *testing.T) {
	r := NewRing(64)
	samples := ramp(10, 0.1)
	r.Write(100, samples, 7)

	for i, want := range samples {
		v, tag := r.ReadSlot(100 + uint64(i))
		if v != want {
			t.Errorf("index %d: expected %v, got %v", 100+i, want, v)
		}
		if tag != 7 {
			t.Errorf("index %d: expected tag 7, got %d", 100+i, tag)
		}
	}

	// Reads are non-destructive
	if _, tag := r.ReadSlot(100); tag != 7 {
		t.Errorf("expected tag to survive read, got %d", tag)
	}
}

func TestRingWraparound(t *testing.T) {
	r := NewRing(32)
	// 28..39 straddles the boundary at 32
	samples := ramp(12, 0.2)
	r.Write(28, samples, 3)

	got := r.DrainContiguous(nil, 28, 12)
	if len(got) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: expected %v, got %v", i, samples[i], got[i])
		}
		v, tag := r.ReadSlot(28 + uint64(i))
		if v != samples[i] || tag != 3 {
			t.Errorf("index %d: expected (%v, 3), got (%v, %d)", 28+i, samples[i], v, tag)
		}
	}

	// Slots outside the write stay empty
	if _, tag := r.ReadSlot(27); tag != Empty {
		t.Errorf("expected slot 27 empty, got tag %d", tag)
	}
	if _, tag := r.ReadSlot(40); tag != Empty {
		t.Errorf("expected slot 40 empty, got tag %d", tag)
	}
}

func TestRingOrderIndependence(t *testing.T) {
	a := ramp(20, 0.1)
	b := ramp(15, -0.3)

	r1 := NewRing(48)
	r1.Write(1000, a, 0)
	r1.Write(1020, b, 1)

	r2 := NewRing(48)
	r2.Write(1020, b, 1)
	r2.Write(1000, a, 0)

	for i := uint64(990); i < 1050; i++ {
		v1, t1 := r1.ReadSlot(i)
		v2, t2 := r2.ReadSlot(i)
		if v1 != v2 || t1 != t2 {
			t.Fatalf("index %d: (%v, %d) != (%v, %d)", i, v1, t1, v2, t2)
		}
	}
}

func TestRingAliasingOverwrites(t *testing.T) {
	r := NewRing(16)
	r.Write(5, []float32{0.1}, 1)
	r.Write(21, []float32{0.9}, 2)

	v, tag := r.ReadSlot(5)
	if v != 0.9 || tag != 2 {
		t.Errorf("expected aliased overwrite (0.9, 2), got (%v, %d)", v, tag)
	}
}

func TestRingDrainStopsAtGap(t *testing.T) {
	r := NewRing(64)
	r.Write(10, ramp(5, 0), 1)
	r.Write(16, ramp(5, 0), 2)

	got := r.DrainContiguous(nil, 10, 100)
	if len(got) != 5 {
		t.Errorf("expected run of 5, got %d", len(got))
	}

	got = r.DrainContiguous(nil, 10, 3)
	if len(got) != 3 {
		t.Errorf("expected max of 3, got %d", len(got))
	}

	// Drain does not clear
	if _, tag := r.ReadSlot(10); tag != 1 {
		t.Errorf("expected drain to leave tags, got %d", tag)
	}

	if got := r.DrainContiguous(nil, 15, 10); len(got) != 0 {
		t.Errorf("expected empty run at gap, got %d", len(got))
	}
}

func TestRingClearRange(t *testing.T) {
	r := NewRing(8)
	r.Write(6, ramp(4, 0.5), 9)
	r.ClearRange(6, 4)

	for i := uint64(6); i < 10; i++ {
		if _, tag := r.ReadSlot(i); tag != Empty {
			t.Errorf("index %d: expected empty after clear, got %d", i, tag)
		}
	}
}
