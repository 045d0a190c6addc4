// ABOUTME: Sender clock tracking with drift estimation
// ABOUTME: Estimates offset, drift and arrival jitter of packet timestamps against the local clock
package clocksync

import (
	"log/slog"
	"sync"
	"time"
)

// Quality represents how well the sender clock is being tracked
type Quality int

const (
	QualityLost Quality = iota
	QualityGood
	QualityDegraded
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

const (
	// DefaultInterval is how often a filtered sample updates the estimate
	DefaultInterval = time.Second
	// LostAfter is the silence after which quality drops to lost
	LostAfter = 5 * time.Second

	maxResidual       = 50000 // µs
	degradedJitter    = 5000  // µs
	defaultSmoothing  = 0.1
	jitterGainDivisor = 16
)

// Snapshot is a point-in-time view of the tracker
type Snapshot struct {
	OffsetMicros int64
	DriftPPM     float64
	JitterMicros float64
	Quality      Quality
	Samples      int
	Rejected     int
}

// Tracker follows the informational timestamp carried by each packet.
//
// Packets are grouped into windows of Interval; the window's largest
// offset (the packet that queued least) drives an offset and drift filter.
// Every packet contributes to the jitter estimate. Nothing here feeds back
// into playout.
type Tracker struct {
	mu            sync.RWMutex
	log           *slog.Logger
	interval      time.Duration
	smoothingRate float64

	offset    int64   // sender - local, µs
	drift     float64 // µs per µs
	jitter    float64 // µs
	lastLocal int64   // local µs of the last filter update
	lastSeen  time.Time
	samples   int
	rejected  int
	quality   Quality

	winStart     int64
	winBest      int64
	winBestLocal int64
	winCount     int
}

// NewTracker creates a tracker with the default update interval
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		log:           logger.With("component", "clocksync"),
		interval:      DefaultInterval,
		smoothingRate: defaultSmoothing,
	}
}

// Reset forgets the current estimate. Senders restart their timestamp on
// every connection.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offset, t.drift, t.jitter = 0, 0, 0
	t.lastLocal, t.samples, t.rejected = 0, 0, 0
	t.winCount = 0
	t.quality = QualityLost
	t.lastSeen = time.Time{}
}

// Observe records one packet's sender timestamp and local arrival time
func (t *Tracker) Observe(senderMicros uint64, arrival time.Time) {
	local := arrival.UnixMicro()
	measured := int64(senderMicros) - local

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = arrival

	if t.samples == 0 {
		t.offset = measured
		t.lastLocal = local
		t.samples = 1
		t.quality = QualityGood
		t.winStart = local
		t.winCount = 0
		t.log.Debug("Sender clock initialized", "offset_us", measured)
		return
	}

	predicted := t.offset + int64(t.drift*float64(local-t.lastLocal))
	residual := measured - predicted
	if residual < 0 {
		residual = -residual
	}
	if residual <= maxResidual {
		t.jitter += (float64(residual) - t.jitter) / jitterGainDivisor
	}

	if t.winCount == 0 || measured > t.winBest {
		t.winBest = measured
		t.winBestLocal = local
	}
	t.winCount++

	if time.Duration(local-t.winStart)*time.Microsecond < t.interval {
		return
	}
	t.update(t.winBest, t.winBestLocal)
	t.winStart = local
	t.winCount = 0
}

// update applies one filtered measurement
func (t *Tracker) update(measured, local int64) {
	dt := float64(local - t.lastLocal)
	if dt <= 0 {
		return
	}

	predicted := t.offset + int64(t.drift*dt)
	residual := measured - predicted
	if residual > maxResidual || residual < -maxResidual {
		t.rejected++
		t.log.Warn("Discarding sender clock sample", "residual_us", residual)
		return
	}

	if t.samples == 1 {
		if time.Duration(dt)*time.Microsecond < t.interval/2 {
			// Too short a baseline for a drift estimate
			t.offset = measured
			t.lastLocal = local
			return
		}
		t.drift = float64(measured-t.offset) / dt
		t.offset = measured
	} else {
		t.offset = predicted + int64(t.smoothingRate*float64(residual))
		t.drift += t.smoothingRate * float64(residual) / dt
	}
	t.lastLocal = local
	t.samples++

	if t.jitter < degradedJitter {
		t.quality = QualityGood
	} else {
		t.quality = QualityDegraded
	}

	if t.samples < 5 {
		t.log.Debug("Sender clock update", "offset_us", t.offset, "drift_ppm", t.drift*1e6, "residual_us", residual)
	}
}

// CheckQuality marks the clock lost after LostAfter without packets
func (t *Tracker) CheckQuality(now time.Time) Quality {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.samples > 0 && now.Sub(t.lastSeen) > LostAfter {
		t.quality = QualityLost
	}
	return t.quality
}

// SenderToLocal maps a sender timestamp onto the local clock
func (t *Tracker) SenderToLocal(senderMicros uint64) time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.samples == 0 {
		return time.UnixMicro(int64(senderMicros))
	}

	// sender = local + offset + drift*(local - lastLocal)
	num := float64(senderMicros) - float64(t.offset) + t.drift*float64(t.lastLocal)
	return time.UnixMicro(int64(num / (1 + t.drift)))
}

// Snapshot returns the current estimate
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		OffsetMicros: t.offset,
		DriftPPM:     t.drift * 1e6,
		JitterMicros: t.jitter,
		Quality:      t.quality,
		Samples:      t.samples,
		Rejected:     t.rejected,
	}
}
