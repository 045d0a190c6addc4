// ABOUTME: Session timeline shared by ingest, playback and the disk writer
// ABOUTME: Owns the ring, the origin and both cursors under a single lock
package timeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrNotStarted is returned by writer operations before the origin is set
var ErrNotStarted = errors.New("timeline not started")

// Options configures a Timeline
type Options struct {
	// Capacity is the ring size in samples (sample_rate x buffer seconds)
	Capacity int

	// LatencyFrames is the fixed playout delay added to the origin
	LatencyFrames uint64

	// ID identifies the session; a random UUID is used when empty
	ID string
}

// Stats is a point-in-time view of the timeline
type Stats struct {
	SessionID      string    `json:"session_id"`
	Started        bool      `json:"started"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	Origin         uint64    `json:"origin"`
	HighestIndex   uint64    `json:"highest_sample_index"`
	LastSeq        uint32    `json:"last_seq"`
	PlaybackCursor uint64    `json:"playback_cursor"`
	WriteCursor    uint64    `json:"write_cursor"`
	SamplesWritten uint64    `json:"samples_written"`
	Packets        uint64    `json:"packets"`
	LateSamples    uint64    `json:"late_samples"`
	ZeroFills      uint64    `json:"zero_fills"`
	LockMisses     uint64    `json:"lock_misses"`
}

// Timeline is the session context. The ring, the origin and the write
// cursor are guarded by mu. The playback cursor is atomic so the renderer
// can advance it even when it fails to take the lock.
type Timeline struct {
	id      string
	latency uint64

	mu          sync.Mutex
	ring        *Ring
	started     bool
	startedAt   time.Time
	origin      uint64
	writeCursor uint64
	highest     uint64
	lastSeq     uint32
	packets     uint64
	late        uint64
	zeroFills   uint64
	written     uint64

	playCursor atomic.Uint64
	lockMisses atomic.Uint64

	notify chan struct{}
}

// New creates an unstarted timeline
func New(opts Options) *Timeline {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &Timeline{
		id:      id,
		latency: opts.LatencyFrames,
		ring:    NewRing(opts.Capacity),
		notify:  make(chan struct{}, 1),
	}
}

// ID returns the session id
func (t *Timeline) ID() string {
	return t.id
}

// Capacity returns the ring size in samples
func (t *Timeline) Capacity() int {
	return t.ring.Cap()
}

// Ready is signalled after every ingested packet
func (t *Timeline) Ready() <-chan struct{} {
	return t.notify
}

func (t *Timeline) signal() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// seedLocked establishes the origin exactly once
func (t *Timeline) seedLocked(origin uint64) bool {
	if t.started {
		return false
	}
	t.started = true
	t.startedAt = time.Now()
	t.origin = origin
	t.writeCursor = origin
	t.highest = origin
	t.playCursor.Store(origin + t.latency)
	return true
}

// Seed sets the origin if it has not been set. It reports whether this
// call established it.
func (t *Timeline) Seed(origin uint64) bool {
	t.mu.Lock()
	seeded := t.seedLocked(origin)
	t.mu.Unlock()
	if seeded {
		t.signal()
	}
	return seeded
}

// Ingest places one packet's samples at their absolute position. The first
// packet of the process seeds the origin. Samples that fall behind the
// write cursor have already been persisted or zero-filled and are dropped.
// It reports whether this packet seeded the origin.
func (t *Timeline) Ingest(start uint64, samples []float32, seq uint32) bool {
	t.mu.Lock()
	seeded := t.seedLocked(start)

	t.packets++
	t.lastSeq = seq
	if end := start + uint64(len(samples)); end > 0 && end-1 > t.highest {
		t.highest = end - 1
	}

	if start < t.writeCursor {
		skip := t.writeCursor - start
		if skip >= uint64(len(samples)) {
			t.late += uint64(len(samples))
			samples = nil
		} else {
			t.late += skip
			samples = samples[skip:]
			start = t.writeCursor
		}
	}
	if len(samples) > 0 {
		t.ring.Write(start, samples, int64(seq))
	}
	t.mu.Unlock()

	t.signal()
	return seeded
}

// ReadSlot returns the value and tag stored for index
func (t *Timeline) ReadSlot(index uint64) (float32, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ring.ReadSlot(index)
}

// Started reports whether the origin has been established
func (t *Timeline) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// Origin returns the origin and whether it is set
func (t *Timeline) Origin() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.origin, t.started
}

// WriteCursor returns the next index the writer will persist
func (t *Timeline) WriteCursor() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeCursor, t.started
}

// PlaybackCursor returns the next index the renderer will emit
func (t *Timeline) PlaybackCursor() uint64 {
	return t.playCursor.Load()
}

// NextRun copies the contiguous run at the write cursor into dst.
// The slots stay tagged until Commit.
func (t *Timeline) NextRun(dst []float32, max int) (uint64, []float32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return 0, dst, ErrNotStarted
	}
	return t.writeCursor, t.ring.DrainContiguous(dst, t.writeCursor, max), nil
}

// Commit records that n samples from start were persisted: the slots are
// cleared and the write cursor moves past them. A start that no longer
// matches the write cursor is ignored.
func (t *Timeline) Commit(start uint64, n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started || start != t.writeCursor {
		return false
	}
	t.ring.ClearRange(start, n)
	t.writeCursor += uint64(n)
	t.written += uint64(n)
	return true
}

// SkipGap advances the write cursor by n after a zero-filled block has
// been persisted, clearing anything that arrived for that range.
func (t *Timeline) SkipGap(n int) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return 0, ErrNotStarted
	}
	start := t.writeCursor
	t.ring.ClearRange(start, n)
	t.writeCursor += uint64(n)
	t.written += uint64(n)
	t.zeroFills++
	return start, nil
}

// Render fills out with the samples at the playback cursor and advances the
// cursor by len(out). It never blocks: if the lock is busy the period is
// silent and locked is false. filled counts the frames that carried data.
func (t *Timeline) Render(out []float32) (filled int, locked bool) {
	n := uint64(len(out))

	if !t.mu.TryLock() {
		clear(out)
		t.lockMisses.Add(1)
		t.playCursor.Add(n)
		return 0, false
	}
	defer t.mu.Unlock()

	cursor := t.playCursor.Add(n) - n
	if !t.started {
		clear(out)
		return 0, true
	}

	for i := range out {
		v, tag := t.ring.ReadSlot(cursor + uint64(i))
		if tag == Empty {
			out[i] = 0
			continue
		}
		out[i] = v
		filled++
	}
	return filled, true
}

// Stats returns a snapshot of the session counters
func (t *Timeline) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		SessionID:      t.id,
		Started:        t.started,
		StartedAt:      t.startedAt,
		Origin:         t.origin,
		HighestIndex:   t.highest,
		LastSeq:        t.lastSeq,
		PlaybackCursor: t.playCursor.Load(),
		WriteCursor:    t.writeCursor,
		SamplesWritten: t.written,
		Packets:        t.packets,
		LateSamples:    t.late,
		ZeroFills:      t.zeroFills,
		LockMisses:     t.lockMisses.Load(),
	}
}
