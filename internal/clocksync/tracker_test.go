// ABOUTME: Tests for sender clock tracking
// ABOUTME: Drift estimation, outlier rejection, jitter and quality transitions
package clocksync

import (
	"math"
	"testing"
	"time"
)

const period = 21333 // µs, 1024 frames at 48 kHz

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// feed sends n packets whose sender clock runs ppm fast, with delay(i)
// added to each arrival
func feed(tr *Tracker, from, n int, ppm float64, jump int64, delay func(i int) int64) {
	for i := from; i < from+n; i++ {
		sender := uint64(float64(i*period)*(1+ppm/1e6)) + uint64(jump)
		arrival := base.Add(time.Duration(int64(i*period)+delay(i)) * time.Microsecond)
		tr.Observe(sender, arrival)
	}
}

func noDelay(int) int64 { return 0 }

func TestTrackerEstimatesDrift(t *testing.T) {
	tests := []struct {
		name string
		ppm  float64
	}{
		{"in step", 0},
		{"sender fast", 100},
		{"sender slow", -250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(nil)
			feed(tr, 0, 1500, tt.ppm, 0, noDelay)

			snap := tr.Snapshot()
			if math.Abs(snap.DriftPPM-tt.ppm) > 1 {
				t.Errorf("expected drift %.0f ppm, got %.3f", tt.ppm, snap.DriftPPM)
			}
			if snap.Quality != QualityGood {
				t.Errorf("expected good quality, got %s", snap.Quality)
			}
			if snap.Samples < 30 {
				t.Errorf("expected at least 30 filter updates, got %d", snap.Samples)
			}
		})
	}
}

func TestTrackerWindowFilterIgnoresQueueing(t *testing.T) {
	tr := NewTracker(nil)
	// Every other packet is held up by 3 ms in the network
	feed(tr, 0, 1500, 50, 0, func(i int) int64 {
		if i%2 == 1 {
			return 3000
		}
		return 0
	})

	snap := tr.Snapshot()
	if math.Abs(snap.DriftPPM-50) > 2 {
		t.Errorf("expected drift near 50 ppm, got %.3f", snap.DriftPPM)
	}
	if snap.JitterMicros < 500 {
		t.Errorf("expected jitter to reflect queueing, got %.0fus", snap.JitterMicros)
	}
}

func TestTrackerRejectsClockJump(t *testing.T) {
	tr := NewTracker(nil)
	feed(tr, 0, 200, 0, 0, noDelay)
	before := tr.Snapshot()

	feed(tr, 200, 200, 0, 200000, noDelay)
	after := tr.Snapshot()

	if after.Rejected == 0 {
		t.Error("expected samples to be rejected after a 200ms jump")
	}
	if after.OffsetMicros != before.OffsetMicros {
		t.Errorf("expected offset to hold at %d, got %d", before.OffsetMicros, after.OffsetMicros)
	}
}

func TestTrackerQualityLost(t *testing.T) {
	tr := NewTracker(nil)
	if q := tr.CheckQuality(base); q != QualityLost {
		t.Errorf("expected lost before any packet, got %s", q)
	}

	feed(tr, 0, 100, 0, 0, noDelay)
	last := base.Add(99 * period * time.Microsecond)

	if q := tr.CheckQuality(last.Add(time.Second)); q != QualityGood {
		t.Errorf("expected good, got %s", q)
	}
	if q := tr.CheckQuality(last.Add(LostAfter + time.Second)); q != QualityLost {
		t.Errorf("expected lost after silence, got %s", q)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(nil)
	feed(tr, 0, 200, 100, 0, noDelay)
	tr.Reset()

	snap := tr.Snapshot()
	if snap.Samples != 0 || snap.DriftPPM != 0 || snap.Quality != QualityLost {
		t.Errorf("expected cleared tracker, got %+v", snap)
	}
}

func TestSenderToLocal(t *testing.T) {
	tr := NewTracker(nil)
	feed(tr, 0, 500, 0, 0, noDelay)

	got := tr.SenderToLocal(uint64(400 * period))
	want := base.Add(400 * period * time.Microsecond)
	if d := got.Sub(want); d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("expected %v, got %v (off by %v)", want, got, d)
	}
}

func TestQualityString(t *testing.T) {
	tests := map[Quality]string{
		QualityGood:     "good",
		QualityDegraded: "degraded",
		QualityLost:     "lost",
	}
	for q, want := range tests {
		if q.String() != want {
			t.Errorf("expected %s, got %s", want, q.String())
		}
	}
}
