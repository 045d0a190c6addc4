// ABOUTME: Prometheus metrics for the receiver
// ABOUTME: Counters and gauges for ingest, playback and recording
package metrics

import (
	"net/http"

	"github.com/harperreed/esprx/internal/clocksync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every receiver metric. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Ingest
	Connections     prometheus.Counter
	Superseded      prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesReceived   prometheus.Counter
	BadMagic        prometheus.Counter
	FormatWarnings  *prometheus.CounterVec
	Unsupported     prometheus.Counter
	HighestIndex    prometheus.Gauge
	SenderDrift     prometheus.Gauge
	ArrivalJitter   prometheus.Gauge

	// Playback
	RenderCalls  prometheus.Counter
	LockMisses   prometheus.Counter
	SilentFrames prometheus.Counter
	PlayCursor   prometheus.Gauge

	// Recording
	FramesWritten prometheus.Counter
	ZeroFills     prometheus.Counter
	WriteCursor   prometheus.Gauge
	SinkErrors    prometheus.Counter

	// HTTP API
	HTTPRequests *prometheus.CounterVec
}

// New creates the metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Connections: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_connections_total",
			Help: "Total number of accepted sender connections",
		}),
		Superseded: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_connections_superseded_total",
			Help: "Connections closed because a newer sender connected",
		}),
		PacketsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_packets_received_total",
			Help: "Total number of audio packets ingested",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_bytes_received_total",
			Help: "Total header and payload bytes read",
		}),
		BadMagic: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_bad_magic_total",
			Help: "Headers rejected for an invalid magic value",
		}),
		FormatWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esprx_format_mismatch_total",
			Help: "Packets whose declared format differs from configuration",
		}, []string{"field"}),
		Unsupported: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_unsupported_format_total",
			Help: "Packets discarded for an unsupported format id",
		}),
		HighestIndex: f.NewGauge(prometheus.GaugeOpts{
			Name: "esprx_highest_sample_index",
			Help: "Highest absolute sample index received",
		}),
		SenderDrift: f.NewGauge(prometheus.GaugeOpts{
			Name: "esprx_sender_clock_drift_ppm",
			Help: "Estimated sender clock drift against the local clock",
		}),
		ArrivalJitter: f.NewGauge(prometheus.GaugeOpts{
			Name: "esprx_arrival_jitter_seconds",
			Help: "Smoothed packet arrival jitter",
		}),

		RenderCalls: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_render_calls_total",
			Help: "Playback periods rendered",
		}),
		LockMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_render_lock_misses_total",
			Help: "Playback periods rendered as silence because the timeline was busy",
		}),
		SilentFrames: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_render_silent_frames_total",
			Help: "Playback frames with no data",
		}),
		PlayCursor: f.NewGauge(prometheus.GaugeOpts{
			Name: "esprx_playback_cursor",
			Help: "Next absolute index to be played",
		}),

		FramesWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_frames_written_total",
			Help: "Frames persisted, including zero-fill",
		}),
		ZeroFills: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_zero_fills_total",
			Help: "Silence blocks written for missing data",
		}),
		WriteCursor: f.NewGauge(prometheus.GaugeOpts{
			Name: "esprx_write_cursor",
			Help: "Next absolute index to be persisted",
		}),
		SinkErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "esprx_sink_errors_total",
			Help: "Errors returned by the durable sink",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esprx_http_requests_total",
			Help: "Status API requests",
		}, []string{"path", "method", "code"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordConnection counts an accepted connection
func (m *Metrics) RecordConnection(superseded bool) {
	if m == nil {
		return
	}
	m.Connections.Inc()
	if superseded {
		m.Superseded.Inc()
	}
}

// RecordPacket counts an ingested packet
func (m *Metrics) RecordPacket(bytes int, highest uint64) {
	if m == nil {
		return
	}
	m.PacketsReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
	m.HighestIndex.Set(float64(highest))
}

// RecordBadMagic counts a rejected header
func (m *Metrics) RecordBadMagic() {
	if m == nil {
		return
	}
	m.BadMagic.Inc()
}

// RecordFormatMismatch counts a declared format field that differs from configuration
func (m *Metrics) RecordFormatMismatch(field string) {
	if m == nil {
		return
	}
	m.FormatWarnings.WithLabelValues(field).Inc()
}

// RecordUnsupported counts a packet discarded for its format id
func (m *Metrics) RecordUnsupported() {
	if m == nil {
		return
	}
	m.Unsupported.Inc()
}

// RecordSenderClock publishes the sender clock estimate
func (m *Metrics) RecordSenderClock(snap clocksync.Snapshot) {
	if m == nil {
		return
	}
	m.SenderDrift.Set(snap.DriftPPM)
	m.ArrivalJitter.Set(snap.JitterMicros / 1e6)
}

// RecordRender records one playback period
func (m *Metrics) RecordRender(frames, filled int, lockMiss bool, cursor uint64) {
	if m == nil {
		return
	}
	m.RenderCalls.Inc()
	if lockMiss {
		m.LockMisses.Inc()
	}
	m.SilentFrames.Add(float64(frames - filled))
	m.PlayCursor.Set(float64(cursor))
}

// RecordWrite records persisted frames
func (m *Metrics) RecordWrite(frames int, zeroFill bool, cursor uint64) {
	if m == nil {
		return
	}
	m.FramesWritten.Add(float64(frames))
	if zeroFill {
		m.ZeroFills.Inc()
	}
	m.WriteCursor.Set(float64(cursor))
}

// RecordSinkError counts a failed sink write
func (m *Metrics) RecordSinkError() {
	if m == nil {
		return
	}
	m.SinkErrors.Inc()
}

// RecordHTTPRequest counts a status API request
func (m *Metrics) RecordHTTPRequest(path, method, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, method, code).Inc()
}
