// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams float32 mono audio pulled from a Source through an oto player
package output

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Oto plays a Source on the default audio device
type Oto struct {
	sampleRate  int
	blockFrames int
	log         *slog.Logger

	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player
}

// NewOto creates an output; blockFrames is a device buffer hint
func NewOto(sampleRate, blockFrames int, logger *slog.Logger) *Oto {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oto{
		sampleRate:  sampleRate,
		blockFrames: blockFrames,
		log:         logger.With("component", "oto"),
	}
}

// Start opens the device and begins pulling from src
func (o *Oto) Start(src Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already started")
	}

	op := &oto.NewContextOptions{
		SampleRate:   o.sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(o.blockFrames) * time.Second / time.Duration(o.sampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.player = ctx.NewPlayer(NewReader(src))
	o.player.Play()

	o.log.Info("Audio output initialized", "sample_rate", o.sampleRate, "block_frames", o.blockFrames)
	return nil
}

// Close stops playback. oto allows a single context per process, so the
// context is suspended rather than destroyed.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			o.log.Warn("Player close failed", "error", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("suspend oto context: %w", err)
		}
	}
	return nil
}

// Reader adapts a Source to io.Reader producing float32 little-endian
// mono frames. Each Read renders exactly len(p)/4 frames.
type Reader struct {
	src Source
	buf []float32
}

// NewReader wraps src
func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// Read renders one period into p
func (r *Reader) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames {
		r.buf = make([]float32, frames)
	}
	buf := r.buf[:frames]
	r.src.Render(buf)

	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return frames * 4, nil
}
