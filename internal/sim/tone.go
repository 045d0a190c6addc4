// ABOUTME: Test tone generator for the sender simulator
// ABOUTME: Generates a mono sine wave indexed by absolute sample position
package sim

import (
	"math"
	"sync"
)

// Tone generates a sine wave
type Tone struct {
	mu         sync.Mutex
	index      uint64
	frequency  float64
	amplitude  float64
	sampleRate int
}

// NewTone creates a tone generator starting at sample index 0
func NewTone(frequency, amplitude float64, sampleRate int) *Tone {
	return &Tone{
		frequency:  frequency,
		amplitude:  amplitude,
		sampleRate: sampleRate,
	}
}

// Read fills samples with the next stretch of the wave
func (t *Tone) Read(samples []float32) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range samples {
		x := float64(t.index+uint64(i)) / float64(t.sampleRate)
		samples[i] = float32(t.amplitude * math.Sin(2*math.Pi*t.frequency*x))
	}
	t.index += uint64(len(samples))
	return len(samples)
}

// At returns the value of the wave at an absolute index
func (t *Tone) At(index uint64) float32 {
	x := float64(index) / float64(t.sampleRate)
	return float32(t.amplitude * math.Sin(2*math.Pi*t.frequency*x))
}

func (t *Tone) SampleRate() int { return t.sampleRate }
