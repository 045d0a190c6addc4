// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it status snapshots
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/esprx/pkg/protocol"
)

// UI owns the bubbletea program
type UI struct {
	title    string
	ctrl     Controller
	quitChan chan struct{}
	opts     []tea.ProgramOption
}

// New creates a status view
func New(title string, ctrl Controller, opts ...tea.ProgramOption) *UI {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &UI{
		title:    title,
		ctrl:     ctrl,
		quitChan: make(chan struct{}, 1),
		opts:     opts,
	}
}

// Run shows the view until the user quits or ctx ends. Snapshots read
// from feed are forwarded to the model; a closed feed marks the view
// disconnected.
func (u *UI) Run(ctx context.Context, feed <-chan protocol.Status) error {
	p := tea.NewProgram(NewModel(u.title, u.ctrl, u.quitChan), u.opts...)

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				p.Quit()
				return
			case st, ok := <-feed:
				if !ok {
					p.Send(disconnectedMsg{})
					return
				}
				p.Send(StatusMsg(st))
			}
		}
	}()

	_, err := p.Run()
	return err
}

// QuitChan signals when the user asked to quit
func (u *UI) QuitChan() <-chan struct{} {
	return u.quitChan
}
