// ABOUTME: HTTP status API for the receiver
// ABOUTME: Serves the status snapshot, gain control, metrics and a WebSocket status feed
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/esprx/internal/clocksync"
	"github.com/harperreed/esprx/internal/metrics"
	"github.com/harperreed/esprx/internal/timeline"
	"github.com/harperreed/esprx/pkg/protocol"
)

// Monitor is the playback control surface
type Monitor interface {
	SetGain(gain float64) float64
	Gain() float64
	SetMuted(muted bool)
	IsMuted() bool
}

// Recorder reports whether the disk writer is still running
type Recorder interface {
	Recording() bool
}

// Config holds status API configuration
type Config struct {
	Address           string
	Stream            protocol.Stream
	OutputPath        string
	BroadcastInterval time.Duration
	Clock             *clocksync.Tracker
	Recorder          Recorder
}

// Server is the status API
type Server struct {
	cfg     Config
	tl      *timeline.Timeline
	monitor Monitor
	log     *slog.Logger
	metrics *metrics.Metrics
	started time.Time

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex
	wg        sync.WaitGroup
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a status server. monitor may be nil when playback is disabled.
func New(cfg Config, tl *timeline.Timeline, monitor Monitor, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = 200 * time.Millisecond
	}

	s := &Server{
		cfg:     cfg,
		tl:      tl,
		monitor: monitor,
		log:     logger.With("component", "status"),
		metrics: m,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: make(map[*wsClient]struct{}),
	}

	s.mux.Handle("/status", s.instrument("/status", http.HandlerFunc(s.handleStatus)))
	s.mux.Handle("/control", s.instrument("/control", http.HandlerFunc(s.handleControl)))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	if m != nil {
		s.mux.Handle("/metrics", s.instrument("/metrics", m.Handler()))
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Snapshot builds the current status
func (s *Server) Snapshot() protocol.Status {
	st := s.tl.Stats()
	out := protocol.Status{
		SessionID:      st.SessionID,
		Started:        st.Started,
		StartedAt:      st.StartedAt,
		Origin:         st.Origin,
		HighestIndex:   st.HighestIndex,
		LastSeq:        st.LastSeq,
		PlaybackCursor: st.PlaybackCursor,
		WriteCursor:    st.WriteCursor,
		SamplesWritten: st.SamplesWritten,
		Packets:        st.Packets,
		LateSamples:    st.LateSamples,
		ZeroFills:      st.ZeroFills,
		LockMisses:     st.LockMisses,
		Stream:         s.cfg.Stream,
		OutputPath:     s.cfg.OutputPath,
		Monitors:       s.Clients(),
		Uptime:         time.Since(s.started).Seconds(),
	}
	if s.cfg.Recorder != nil {
		out.Recording = s.cfg.Recorder.Recording()
	}
	if s.monitor != nil {
		out.Gain = s.monitor.Gain()
		out.Muted = s.monitor.IsMuted()
	}
	if s.cfg.Clock != nil {
		q := s.cfg.Clock.CheckQuality(time.Now())
		c := s.cfg.Clock.Snapshot()
		out.SenderClock = &protocol.SenderClock{
			OffsetMicros: c.OffsetMicros,
			DriftPPM:     c.DriftPPM,
			JitterMicros: c.JitterMicros,
			Quality:      q.String(),
			Samples:      c.Samples,
			Rejected:     c.Rejected,
		}
	}
	return out
}

// Run listens on the configured address and broadcasts status until ctx ends
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the API on ln until ctx ends
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Status API listening", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ticker := time.NewTicker(s.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			s.closeClients()
			s.wg.Wait()
			s.log.Info("Status API stopped")
			return err
		case err, ok := <-errCh:
			if ok && err != nil {
				s.closeClients()
				return fmt.Errorf("status API failed: %w", err)
			}
			return nil
		case <-ticker.C:
			s.broadcast()
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.monitor == nil {
		writeError(w, http.StatusServiceUnavailable, "playback_disabled", "playback is not running")
		return
	}

	var cmd protocol.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	if err := dec.Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if cmd.Gain == nil && cmd.Mute == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "expected gain or mute")
		return
	}

	writeJSON(w, http.StatusOK, s.apply(cmd, r.RemoteAddr))
}

// apply runs a control command against the monitor
func (s *Server) apply(cmd protocol.Command, from string) protocol.ControlResult {
	if cmd.Gain != nil {
		applied := s.monitor.SetGain(*cmd.Gain)
		s.log.Info("Monitor gain changed", "requested", *cmd.Gain, "gain", applied, "from", from)
	}
	if cmd.Mute != nil {
		s.monitor.SetMuted(*cmd.Mute)
		s.log.Info("Monitor mute changed", "muted", *cmd.Mute, "from", from)
	}
	return protocol.ControlResult{Gain: s.monitor.Gain(), Muted: s.monitor.IsMuted()}
}

// instrument counts requests per path, method and status code
func (s *Server) instrument(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(path, r.Method, strconv.Itoa(rec.code))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, protocol.ErrorPayload{Error: kind, Message: message})
}
