// ABOUTME: Session supervisor that owns the timeline and every role around it
// ABOUTME: Builds ingest, playback, recorder, status API, discovery and UI and runs them together
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/harperreed/esprx/internal/clocksync"
	"github.com/harperreed/esprx/internal/config"
	"github.com/harperreed/esprx/internal/discovery"
	"github.com/harperreed/esprx/internal/ingest"
	"github.com/harperreed/esprx/internal/metrics"
	"github.com/harperreed/esprx/internal/player"
	"github.com/harperreed/esprx/internal/protocol"
	"github.com/harperreed/esprx/internal/recorder"
	"github.com/harperreed/esprx/internal/status"
	"github.com/harperreed/esprx/internal/timeline"
	"github.com/harperreed/esprx/internal/ui"
	"github.com/harperreed/esprx/internal/version"
	pkgprotocol "github.com/harperreed/esprx/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// StatInterval is how often the STAT line is logged
const StatInterval = time.Second

// ErrUserQuit is returned by Run when the console view was closed
var ErrUserQuit = errors.New("quit from console")

// Supervisor is one receiver session
type Supervisor struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	tl       *timeline.Timeline
	renderer *player.Renderer
	player   *player.Player
	writer   *recorder.Writer
	sink     recorder.Sink
	ingest   *ingest.Server
	clock    *clocksync.Tracker
	status   *status.Server
	disc     *discovery.Manager
	view     *ui.UI
}

// New builds a session. Opening the output file and binding the sender
// port happen here so their failures surface before anything runs.
func New(cfg *config.Config, logger *slog.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New()

	tl := timeline.New(timeline.Options{
		Capacity:      cfg.Audio.RingCapacity(),
		LatencyFrames: cfg.Playback.LatencyFrames(cfg.Audio.SampleRate),
	})
	log := logger.With("session", tl.ID())

	sink, err := recorder.CreateWAV(cfg.Recorder.OutputPath, cfg.Audio.SampleRate, cfg.Recorder.BitDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}

	s := &Supervisor{
		cfg:     cfg,
		log:     log,
		metrics: m,
		tl:      tl,
		sink:    sink,
	}

	s.writer = recorder.NewWriter(tl, sink, recorder.Config{
		MaxChunk:       cfg.Recorder.MaxChunk,
		ZeroFillFrames: cfg.Recorder.ZeroFillFrames,
		MissingTimeout: cfg.Recorder.GetMissingTimeout(),
		PollInterval:   cfg.Recorder.GetPollInterval(),
	}, log, m)

	s.renderer = player.NewRenderer(tl, cfg.Playback.Gain, log, m)
	s.clock = clocksync.NewTracker(log)

	s.ingest = ingest.NewServer(ingest.Config{
		Address:       cfg.Server.ListenAddress(),
		AcceptTimeout: cfg.Server.GetAcceptTimeout(),
		ReadTimeout:   cfg.Server.GetReadTimeout(),
		Expect: protocol.Expect{
			SampleRate:     uint32(cfg.Audio.SampleRate),
			Channels:       uint8(cfg.Audio.Channels),
			BytesPerSample: uint8(cfg.Audio.BytesPerSample),
			FormatID:       uint16(cfg.Audio.FormatID),
		},
		Clock: s.clock,
	}, tl, log, m)
	if err := s.ingest.Listen(); err != nil {
		sink.Close()
		return nil, err
	}

	var monitor status.Monitor
	if cfg.Playback.Enabled {
		monitor = s.renderer
	}
	s.status = status.New(status.Config{
		Address: cfg.HTTP.ListenAddress(),
		Stream: pkgprotocol.Stream{
			SampleRate:     cfg.Audio.SampleRate,
			Channels:       cfg.Audio.Channels,
			BytesPerSample: cfg.Audio.BytesPerSample,
			FormatID:       cfg.Audio.FormatID,
		},
		OutputPath: cfg.Recorder.OutputPath,
		Clock:      s.clock,
		Recorder:   s.writer,
	}, tl, monitor, log, m)

	if cfg.Discovery.Enabled {
		httpPort := 0
		if cfg.HTTP.Enabled {
			httpPort = cfg.HTTP.Port
		}
		s.disc = discovery.NewManager(discovery.Config{
			ServiceName: cfg.Discovery.ServiceName,
			Port:        cfg.Server.Port,
			HTTPPort:    httpPort,
			SessionID:   tl.ID(),
			SampleRate:  cfg.Audio.SampleRate,
		}, log)
	}

	if cfg.UI.Enabled {
		var ctrl ui.Controller
		if monitor != nil {
			ctrl = localControl{s.renderer}
		}
		s.view = ui.New(version.String(), ctrl)
	}

	return s, nil
}

// Timeline returns the session timeline
func (s *Supervisor) Timeline() *timeline.Timeline {
	return s.tl
}

// Renderer returns the playback renderer
func (s *Supervisor) Renderer() *player.Renderer {
	return s.renderer
}

// IngestAddr returns the bound sender address
func (s *Supervisor) IngestAddr() net.Addr {
	return s.ingest.Addr()
}

// Metrics returns the session metrics
func (s *Supervisor) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run runs every role until ctx is cancelled or one of them fails, then
// shuts down. The writer flushes contiguous data and closes the file on
// the way out.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("Session starting",
		"version", version.Version,
		"listen", s.ingest.Addr().String(),
		"output", s.cfg.Recorder.OutputPath,
		"ring_capacity", s.tl.Capacity(),
		"latency_frames", s.cfg.Playback.LatencyFrames(s.cfg.Audio.SampleRate))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.startPlayback()
	if s.disc != nil {
		if err := s.disc.Advertise(); err != nil {
			s.log.Warn("mDNS advertisement failed", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.ingest.Serve(gctx)
	})

	// Cancelled only after ingest has returned so the final flush sees every packet
	wctx, wcancel := context.WithCancel(context.Background())
	defer wcancel()
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- s.writer.Run(wctx)
	}()

	if s.cfg.HTTP.Enabled {
		g.Go(func() error {
			if err := s.status.Run(gctx); err != nil {
				s.log.Error("Status API stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.statLoop(gctx)
		return nil
	})

	if s.view != nil {
		g.Go(func() error {
			err := s.view.Run(gctx, s.feed(gctx))
			if gctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("console view: %w", err)
			}
			return ErrUserQuit
		})
	}

	err := g.Wait()
	cancel()
	wcancel()

	s.shutdown(writerDone)

	if errors.Is(err, ErrUserQuit) {
		return nil
	}
	return err
}

// shutdown stops playback and waits for the writer with a bounded join
func (s *Supervisor) shutdown(writerDone <-chan error) {
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			s.log.Warn("Playback close failed", "error", err)
		}
	}
	if s.disc != nil {
		s.disc.Stop()
	}

	timeout := s.cfg.Server.GetShutdownTimeout()
	select {
	case err := <-writerDone:
		if err != nil {
			s.log.Error("Recorder stopped with error", "error", err)
		}
	case <-time.After(timeout):
		s.log.Error("Recorder did not stop in time", "timeout", timeout)
	}

	s.logStats("Session ended")
}

// startPlayback starts the configured engine. A device failure falls back
// to the headless clock so the playback cursor still advances.
func (s *Supervisor) startPlayback() {
	if !s.cfg.Playback.Enabled {
		s.log.Info("Playback disabled")
		return
	}

	rate := s.cfg.Audio.SampleRate
	block := s.cfg.Playback.BlockFrames

	out, err := player.NewOutput(s.cfg.Playback.Backend, rate, block, s.log)
	if err == nil {
		p := player.New(s.renderer, out, s.log)
		if err = p.Start(); err == nil {
			s.player = p
			return
		}
	}

	s.log.Warn("Playback device unavailable, using clock engine", "backend", s.cfg.Playback.Backend, "error", err)
	out, _ = player.NewOutput("clock", rate, block, s.log)
	p := player.New(s.renderer, out, s.log)
	if err := p.Start(); err != nil {
		s.log.Error("Clock engine failed to start", "error", err)
		return
	}
	s.player = p
}

// statLoop logs a STAT line every StatInterval
func (s *Supervisor) statLoop(ctx context.Context) {
	ticker := time.NewTicker(StatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStats("STAT")
		}
	}
}

func (s *Supervisor) logStats(msg string) {
	st := s.tl.Stats()
	if !st.Started {
		s.log.Info(msg, "started", false)
		return
	}
	clk := s.clock.Snapshot()
	s.log.Info(msg,
		"origin", st.Origin,
		"highest", st.HighestIndex,
		"seq", st.LastSeq,
		"play", st.PlaybackCursor,
		"write", st.WriteCursor,
		"written", st.SamplesWritten,
		"packets", st.Packets,
		"late", st.LateSamples,
		"zero_fills", st.ZeroFills,
		"lock_misses", st.LockMisses,
		"drift_ppm", fmt.Sprintf("%.1f", clk.DriftPPM),
		"jitter_us", int64(clk.JitterMicros))
}

// feed polls status snapshots for the local console view
func (s *Supervisor) feed(ctx context.Context) <-chan pkgprotocol.Status {
	out := make(chan pkgprotocol.Status, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- s.status.Snapshot():
				default:
				}
			}
		}
	}()
	return out
}

// localControl adapts the renderer to the console view controls
type localControl struct {
	r *player.Renderer
}

func (c localControl) SetGain(g float64) error {
	c.r.SetGain(g)
	return nil
}

func (c localControl) SetMute(m bool) error {
	c.r.SetMuted(m)
	return nil
}
