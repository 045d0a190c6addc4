// ABOUTME: Realtime playback renderer over the session timeline
// ABOUTME: Non-blocking pull with monitor gain and mute
package player

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/harperreed/esprx/internal/metrics"
	"github.com/harperreed/esprx/internal/timeline"
	"github.com/harperreed/esprx/pkg/audio"
	"github.com/harperreed/esprx/pkg/audio/output"
)

const (
	MinGain = 0.01
	MaxGain = 16.0
)

// Renderer is the Source handed to the audio engine. Gain affects only
// what is heard; the persisted timeline is untouched.
//
// The writer clears slots as soon as it commits them, and it trails the
// producer by about one poll interval while playback reads at origin plus
// the playout latency. With the default settings live monitoring is
// therefore mostly silent; zero_fills and samples_written show the stream
// is still being recorded.
type Renderer struct {
	tl      *timeline.Timeline
	metrics *metrics.Metrics
	log     *slog.Logger

	gain  atomic.Uint64 // float64 bits
	muted atomic.Bool
}

// NewRenderer creates a renderer with the given monitor gain
func NewRenderer(tl *timeline.Timeline, gain float64, logger *slog.Logger, m *metrics.Metrics) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		tl:      tl,
		metrics: m,
		log:     logger.With("component", "player"),
	}
	r.gain.Store(math.Float64bits(clampGain(gain)))
	return r
}

var _ output.Source = (*Renderer)(nil)

// Render fills out with the next period. It never blocks.
func (r *Renderer) Render(out []float32) {
	filled, locked := r.tl.Render(out)
	r.metrics.RecordRender(len(out), filled, !locked, r.tl.PlaybackCursor())

	if filled == 0 {
		return
	}
	applyGain(out, r.multiplier())
}

// SetGain sets the monitor gain, clamped to [MinGain, MaxGain], and
// returns the applied value
func (r *Renderer) SetGain(gain float64) float64 {
	g := clampGain(gain)
	r.gain.Store(math.Float64bits(g))
	r.log.Info("Gain set", "gain", g)
	return g
}

// Gain returns the monitor gain
func (r *Renderer) Gain() float64 {
	return math.Float64frombits(r.gain.Load())
}

// SetMuted sets mute state
func (r *Renderer) SetMuted(muted bool) {
	r.muted.Store(muted)
	r.log.Info("Muted", "muted", muted)
}

// IsMuted returns mute state
func (r *Renderer) IsMuted() bool {
	return r.muted.Load()
}

func (r *Renderer) multiplier() float32 {
	if r.muted.Load() {
		return 0
	}
	return float32(r.Gain())
}

func clampGain(g float64) float64 {
	if math.IsNaN(g) || g < MinGain {
		return MinGain
	}
	if g > MaxGain {
		return MaxGain
	}
	return g
}

// applyGain scales samples in place with clipping protection
func applyGain(samples []float32, gain float32) {
	if gain == 1 {
		return
	}
	for i, s := range samples {
		samples[i] = audio.Clamp(s * gain)
	}
}
