// ABOUTME: Playback wiring between the renderer and an audio engine
// ABOUTME: Chooses the oto device or the headless clock
package player

import (
	"fmt"
	"log/slog"

	"github.com/harperreed/esprx/pkg/audio/output"
)

// Player owns the engine that pulls the renderer
type Player struct {
	Renderer *Renderer
	out      output.Output
	log      *slog.Logger
}

// NewOutput builds the named backend
func NewOutput(backend string, sampleRate, blockFrames int, logger *slog.Logger) (output.Output, error) {
	switch backend {
	case "oto":
		return output.NewOto(sampleRate, blockFrames, logger), nil
	case "clock":
		return output.NewClock(sampleRate, blockFrames, nil), nil
	default:
		return nil, fmt.Errorf("unknown playback backend: %s", backend)
	}
}

// New creates a player around an engine
func New(r *Renderer, out output.Output, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{Renderer: r, out: out, log: logger.With("component", "player")}
}

// Start begins playback
func (p *Player) Start() error {
	if err := p.out.Start(p.Renderer); err != nil {
		return fmt.Errorf("start output: %w", err)
	}
	p.log.Info("Playback started", "gain", p.Renderer.Gain())
	return nil
}

// Close stops playback
func (p *Player) Close() error {
	return p.out.Close()
}
