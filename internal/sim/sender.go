// ABOUTME: Simulated ESP32 sender
// ABOUTME: Frames tone samples into packets at real-time pace with optional fault injection
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/harperreed/esprx/internal/protocol"
	"github.com/harperreed/esprx/pkg/audio/encode"
)

// Config controls the packet stream
type Config struct {
	SampleRate    int
	FrameCount    int    // frames per packet
	StartIndex    uint64 // absolute index of the first sample
	Packets       int    // stop after this many packets, 0 runs until cancelled
	Realtime      bool   // pace packets at the sample rate
	Reorder       bool   // swap every pair of packets
	DropEvery     int    // drop every Nth packet, 0 disables
	BadMagicEvery int    // insert a header-only packet with a corrupt magic before every Nth packet
}

// Stats counts what was put on the wire
type Stats struct {
	Sent     int
	Dropped  int
	BadMagic int
	Bytes    int64
}

// Sender produces the packet stream
type Sender struct {
	cfg   Config
	tone  *Tone
	log   *slog.Logger
	enc   encode.Left24
	seq   uint32
	next  uint64
	start time.Time
	buf   []float32
}

// NewSender creates a sender reading from tone
func NewSender(cfg Config, tone *Tone, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameCount <= 0 {
		cfg.FrameCount = 1024
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = tone.SampleRate()
	}
	return &Sender{
		cfg:  cfg,
		tone: tone,
		log:  logger.With("component", "sim"),
		next: cfg.StartIndex,
		buf:  make([]float32, cfg.FrameCount),
	}
}

// Packet builds the next packet in stream order
func (s *Sender) Packet() []byte {
	if s.start.IsZero() {
		s.start = time.Now()
	}
	s.tone.Read(s.buf)

	h := protocol.Header{
		Seq:              s.seq,
		FirstSampleIndex: s.next,
		Timestamp:        uint64(time.Since(s.start).Microseconds()),
		FrameCount:       uint16(s.cfg.FrameCount),
		Channels:         1,
		BytesPerSample:   4,
		SampleRate:       uint32(s.cfg.SampleRate),
		FormatID:         protocol.FormatInt32Left24,
	}
	s.seq++
	s.next += uint64(s.cfg.FrameCount)

	return append(h.Encode(), s.enc.Encode(s.buf)...)
}

// badMagic is a header-only packet the receiver must skip
func badMagic() []byte {
	h := protocol.Header{Magic: 0xDEADBEEF}
	return h.Encode()
}

// Period is the real-time duration of one packet
func (s *Sender) Period() time.Duration {
	return time.Duration(s.cfg.FrameCount) * time.Second / time.Duration(s.cfg.SampleRate)
}

// Run writes packets to w until ctx ends, the packet budget is spent or a
// write fails
func (s *Sender) Run(ctx context.Context, w io.Writer) (Stats, error) {
	var st Stats
	var held []byte

	var tick <-chan time.Time
	if s.cfg.Realtime {
		ticker := time.NewTicker(s.Period())
		defer ticker.Stop()
		tick = ticker.C
	}

	write := func(p []byte) error {
		n, err := w.Write(p)
		st.Bytes += int64(n)
		if err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		return nil
	}

	for n := 1; s.cfg.Packets == 0 || n <= s.cfg.Packets; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return st, nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return st, nil
		}

		pkt := s.Packet()

		if s.cfg.BadMagicEvery > 0 && n%s.cfg.BadMagicEvery == 0 {
			if err := write(badMagic()); err != nil {
				return st, err
			}
			st.BadMagic++
		}

		if s.cfg.DropEvery > 0 && n%s.cfg.DropEvery == 0 {
			st.Dropped++
			s.log.Debug("Dropped packet", "packet", n)
			continue
		}

		if s.cfg.Reorder && held == nil {
			held = pkt
			continue
		}

		if err := write(pkt); err != nil {
			return st, err
		}
		st.Sent++

		if held != nil {
			if err := write(held); err != nil {
				return st, err
			}
			st.Sent++
			held = nil
		}
	}

	if held != nil {
		if err := write(held); err != nil {
			return st, err
		}
		st.Sent++
	}
	return st, nil
}
