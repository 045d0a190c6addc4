// ABOUTME: Headless output that pulls a Source on a fixed period
// ABOUTME: Used when no audio device is available or wanted
package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// Clock pulls blockFrames from the Source every block period, like a
// device would, and optionally writes the float32 frames to w.
type Clock struct {
	sampleRate  int
	blockFrames int
	w           io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClock creates a headless output. w may be nil.
func NewClock(sampleRate, blockFrames int, w io.Writer) *Clock {
	return &Clock{
		sampleRate:  sampleRate,
		blockFrames: blockFrames,
		w:           w,
	}
}

// Period is the time between pulls
func (c *Clock) Period() time.Duration {
	return time.Duration(c.blockFrames) * time.Second / time.Duration(c.sampleRate)
}

// Start begins pulling from src on a ticker
func (c *Clock) Start(src Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return fmt.Errorf("clock output already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, src)
	return nil
}

func (c *Clock) run(ctx context.Context, src Source) {
	defer close(c.done)

	ticker := time.NewTicker(c.Period())
	defer ticker.Stop()

	buf := make([]float32, c.blockFrames)
	raw := make([]byte, c.blockFrames*4)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			src.Render(buf)
			if c.w == nil {
				continue
			}
			for i, v := range buf {
				binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
			}
			if _, err := c.w.Write(raw); err != nil {
				return
			}
		}
	}
}

// Close stops the ticker and waits for the last pull to finish
func (c *Clock) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
