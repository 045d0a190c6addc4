// ABOUTME: TCP listener for the ESP32 sender
// ABOUTME: Accept loop with a single active connection; newer senders supersede older ones
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/harperreed/esprx/internal/clocksync"
	"github.com/harperreed/esprx/internal/metrics"
	"github.com/harperreed/esprx/internal/protocol"
	"github.com/harperreed/esprx/internal/timeline"
)

// Config holds listener configuration
type Config struct {
	Address       string
	AcceptTimeout time.Duration // accept poll interval
	ReadTimeout   time.Duration // per-read deadline on a connection
	Expect        protocol.Expect
	Clock         *clocksync.Tracker // optional, follows packet timestamps
}

// Server accepts sender connections and feeds the timeline
type Server struct {
	cfg     Config
	tl      *timeline.Timeline
	log     *slog.Logger
	metrics *metrics.Metrics

	listener *net.TCPListener

	mu     sync.Mutex
	active net.Conn
	nextID uint64
	wg     sync.WaitGroup
}

// NewServer creates an ingest server
func NewServer(cfg Config, tl *timeline.Timeline, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	return &Server{
		cfg:     cfg,
		tl:      tl,
		log:     logger.With("component", "ingest"),
		metrics: m,
	}
}

// Listen binds the TCP listener. Failure here is fatal for the receiver.
func (s *Server) Listen() error {
	addr, err := net.ResolveTCPAddr("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", s.cfg.Address, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	s.listener = ln
	s.log.Info("Listening for sender", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled. The accept deadline
// bounds how long shutdown takes to be noticed.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("ingest: Serve called before Listen")
	}
	defer s.listener.Close()

	for {
		if ctx.Err() != nil {
			break
		}

		if err := s.listener.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
			return fmt.Errorf("set accept deadline: %w", err)
		}

		conn, err := s.listener.AcceptTCP()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			s.log.Error("Accept failed", "error", err)
			continue
		}

		conn.SetNoDelay(true)
		s.startConn(ctx, conn)
	}

	s.closeActive()
	s.wg.Wait()
	s.log.Info("Ingest stopped")
	return nil
}

// startConn registers conn as the active connection, closing any prior one
func (s *Server) startConn(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	prev := s.active
	s.active = conn
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	if prev != nil {
		s.log.Warn("New sender supersedes active connection",
			"previous", prev.RemoteAddr().String(), "remote", conn.RemoteAddr().String())
		prev.Close()
	}
	s.metrics.RecordConnection(prev != nil)
	if s.cfg.Clock != nil {
		s.cfg.Clock.Reset()
	}
	s.log.Info("Sender connected", "conn", id, "remote", conn.RemoteAddr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.HandleConn(ctx, conn)

		s.mu.Lock()
		if s.active == conn {
			s.active = nil
		}
		s.mu.Unlock()
	}()
}

func (s *Server) closeActive() {
	s.mu.Lock()
	conn := s.active
	s.active = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Run binds and serves
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.Serve(ctx)
}
