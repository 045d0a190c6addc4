// ABOUTME: Trailing disk writer for the session timeline
// ABOUTME: Persists contiguous runs and zero-fills gaps after a timeout
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/harperreed/esprx/internal/metrics"
	"github.com/harperreed/esprx/internal/timeline"
)

// Config controls the writer loop
type Config struct {
	MaxChunk       int           // largest run persisted per step
	ZeroFillFrames int           // silence block size when data is missing
	MissingTimeout time.Duration // starvation time before a zero-fill
	PollInterval   time.Duration // fallback wake interval
}

// DefaultConfig returns the stock writer settings
func DefaultConfig() Config {
	return Config{
		MaxChunk:       8192,
		ZeroFillFrames: 1024,
		MissingTimeout: 250 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}
}

// Writer drains the timeline into a Sink
type Writer struct {
	tl      *timeline.Timeline
	sink    Sink
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	buf          []float32
	zeros        []float32
	lastProgress time.Time
	running      bool
	stopped      atomic.Bool
}

// NewWriter creates a writer; the sink is owned by the writer from now on
func NewWriter(tl *timeline.Timeline, sink Sink, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxChunk <= 0 {
		cfg.MaxChunk = DefaultConfig().MaxChunk
	}
	if cfg.ZeroFillFrames <= 0 {
		cfg.ZeroFillFrames = DefaultConfig().ZeroFillFrames
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Writer{
		tl:      tl,
		sink:    sink,
		cfg:     cfg,
		log:     logger.With("component", "recorder"),
		metrics: m,
		buf:     make([]float32, 0, cfg.MaxChunk),
		zeros:   make([]float32, cfg.ZeroFillFrames),
	}
}

// Step performs one writer iteration at time now. It reports whether the
// write cursor moved.
func (w *Writer) Step(now time.Time) (bool, error) {
	start, run, err := w.tl.NextRun(w.buf[:0], w.cfg.MaxChunk)
	if errors.Is(err, timeline.ErrNotStarted) {
		w.lastProgress = now
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !w.running {
		w.running = true
		w.lastProgress = now
		w.log.Info("Writer starting", "index", start)
	}

	if len(run) > 0 {
		if err := w.sink.WriteSamples(run); err != nil {
			w.metrics.RecordSinkError()
			return false, fmt.Errorf("persist %d samples at %d: %w", len(run), start, err)
		}
		w.tl.Commit(start, len(run))
		w.lastProgress = now
		w.metrics.RecordWrite(len(run), false, start+uint64(len(run)))
		return true, nil
	}

	if now.Sub(w.lastProgress) < w.cfg.MissingTimeout {
		return false, nil
	}

	if err := w.sink.WriteSamples(w.zeros); err != nil {
		w.metrics.RecordSinkError()
		return false, fmt.Errorf("persist zero-fill at %d: %w", start, err)
	}
	at, err := w.tl.SkipGap(len(w.zeros))
	if err != nil {
		return false, err
	}
	w.lastProgress = now
	w.metrics.RecordWrite(len(w.zeros), true, at+uint64(len(w.zeros)))
	w.log.Warn("Missing data, zero-filled",
		"timeout", w.cfg.MissingTimeout, "frames", len(w.zeros), "index", at)
	return true, nil
}

// Recording reports whether the sink is still accepting data. It turns
// false for good once Run returns, including after a failed write.
func (w *Writer) Recording() bool {
	return !w.stopped.Load()
}

// Run loops until ctx is cancelled, then flushes what is contiguous and
// closes the sink.
func (w *Writer) Run(ctx context.Context) error {
	defer w.stopped.Store(true)

	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	for {
		progressed, err := w.Step(time.Now())
		if err != nil {
			w.log.Error("Writer failed", "error", err)
			if cerr := w.sink.Close(); cerr != nil {
				w.log.Error("Sink close failed", "error", cerr)
			}
			return err
		}

		if progressed {
			select {
			case <-ctx.Done():
				return w.finish()
			default:
				continue
			}
		}

		timer.Reset(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return w.finish()
		case <-w.tl.Ready():
		case <-timer.C:
		}
	}
}

// finish persists any remaining contiguous data without zero-filling
func (w *Writer) finish() error {
	for {
		start, run, err := w.tl.NextRun(w.buf[:0], w.cfg.MaxChunk)
		if err != nil || len(run) == 0 {
			break
		}
		if err := w.sink.WriteSamples(run); err != nil {
			w.metrics.RecordSinkError()
			w.log.Error("Final flush failed", "error", err)
			break
		}
		w.tl.Commit(start, len(run))
		w.metrics.RecordWrite(len(run), false, start+uint64(len(run)))
	}

	s := w.tl.Stats()
	w.log.Info("Writer stopped", "write_cursor", s.WriteCursor, "samples_written", s.SamplesWritten)

	if err := w.sink.Close(); err != nil {
		return fmt.Errorf("close sink: %w", err)
	}
	return nil
}
