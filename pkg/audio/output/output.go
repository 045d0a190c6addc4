// ABOUTME: Audio output interface definition
// ABOUTME: Pull-model engines that ask a Source for fixed periods of audio
package output

// Source produces the next period of mono samples. It is called from the
// engine's realtime context and must not block.
type Source interface {
	Render(out []float32)
}

// Output drives a Source at the device pace
type Output interface {
	// Start begins pulling from src
	Start(src Source) error

	// Close stops pulling and releases the device
	Close() error
}
