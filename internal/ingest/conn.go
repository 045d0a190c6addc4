// ABOUTME: Per-connection packet loop
// ABOUTME: Frames header and payload, decodes samples and writes them to the timeline
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/harperreed/esprx/internal/protocol"
	"github.com/harperreed/esprx/pkg/audio/decode"
)

// HandleConn runs the packet loop for one connection until the peer
// closes, a read fails or times out, a length is malformed, or ctx ends.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := s.log.With("remote", conn.RemoteAddr().String())
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	hdr := make([]byte, protocol.HeaderSize)
	var payload []byte
	warned := make(map[string]bool)
	packets := 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if _, err := io.ReadFull(conn, hdr); err != nil {
			s.logEnd(log, err, packets)
			return
		}

		arrived := time.Now()
		h, err := protocol.Decode(hdr)
		if errors.Is(err, protocol.ErrInvalidMagic) {
			// No resynchronization: the next read assumes alignment again
			s.metrics.RecordBadMagic()
			log.Warn("Bad header magic, reading next header", "magic", h.Magic)
			continue
		}
		if err != nil {
			log.Warn("Header decode failed", "error", err)
			return
		}

		size := h.PayloadSize()
		if size > protocol.MaxPayloadSize {
			log.Warn("Malformed payload length, closing connection", "size", size, "header", h.String())
			return
		}
		if cap(payload) < size {
			payload = make([]byte, size)
		}
		payload = payload[:size]

		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if _, err := io.ReadFull(conn, payload); err != nil {
			s.logEnd(log, err, packets)
			return
		}

		for _, m := range h.CheckFormat(s.cfg.Expect) {
			s.metrics.RecordFormatMismatch(m.Field)
			if !warned[m.Field] {
				warned[m.Field] = true
				log.Warn("Declared format differs from configuration", "mismatch", m.String())
			}
		}

		if s.cfg.Clock != nil {
			s.cfg.Clock.Observe(h.Timestamp, arrived)
			s.metrics.RecordSenderClock(s.cfg.Clock.Snapshot())
		}

		dec, err := decode.New(h.FormatID)
		if err == nil && int(h.BytesPerSample) != dec.BytesPerSample() {
			err = fmt.Errorf("format %d uses %d-byte words, header declares %d",
				h.FormatID, dec.BytesPerSample(), h.BytesPerSample)
		}
		if err != nil {
			s.metrics.RecordUnsupported()
			log.Warn("Discarding packet", "error", err, "seq", h.Seq)
			continue
		}
		samples, err := dec.Decode(payload)
		if err == nil && len(samples) != h.Samples() {
			err = fmt.Errorf("decoded %d samples, header declares %d", len(samples), h.Samples())
		}
		if err != nil {
			s.metrics.RecordUnsupported()
			log.Warn("Discarding undecodable payload", "error", err, "seq", h.Seq)
			continue
		}

		if h.Channels > 1 {
			if !warned["interleaved"] {
				warned["interleaved"] = true
				log.Warn("Interleaved packet, keeping the first channel", "channels", h.Channels)
			}
			samples = firstChannel(samples, int(h.Channels))
		}

		if s.tl.Ingest(h.FirstSampleIndex, samples, h.Seq) {
			log.Info("Timeline origin set", "origin", h.FirstSampleIndex, "session", s.tl.ID())
		}
		packets++

		end := h.FirstSampleIndex
		if len(samples) > 0 {
			end += uint64(len(samples)) - 1
		}
		s.metrics.RecordPacket(protocol.HeaderSize+size, end)
		log.Debug("Packet", "header", h.String())
	}
}

// firstChannel compacts interleaved samples to channel 0 in place so the
// timeline holds one sample per frame
func firstChannel(samples []float32, channels int) []float32 {
	frames := len(samples) / channels
	for i := 0; i < frames; i++ {
		samples[i] = samples[i*channels]
	}
	return samples[:frames]
}

func (s *Server) logEnd(log *slog.Logger, err error, packets int) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		log.Info("Sender closed connection", "packets", packets)
	case errors.Is(err, io.ErrUnexpectedEOF):
		log.Warn("Sender closed mid-packet", "packets", packets)
	case errors.As(err, &netErr) && netErr.Timeout():
		log.Warn("Read timed out, closing connection", "packets", packets)
	case errors.Is(err, net.ErrClosed):
		log.Info("Connection closed", "packets", packets)
	default:
		log.Warn("Read failed", "error", err, "packets", packets)
	}
}
