// ABOUTME: Bubbletea model for the receiver status view
// ABOUTME: Renders timeline cursors and counters and handles gain keys
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/esprx/pkg/protocol"
)

// gainStep is 3 dB
var gainStep = math.Sqrt2

// Controller changes playback settings on the receiver being watched
type Controller interface {
	SetGain(gain float64) error
	SetMute(mute bool) error
}

// StatusMsg carries a fresh snapshot
type StatusMsg protocol.Status

// disconnectedMsg is sent when the status feed ends
type disconnectedMsg struct{}

// errMsg reports a failed control request
type errMsg struct{ err error }

// Model represents the view state
type Model struct {
	title     string
	status    protocol.Status
	have      bool
	connected bool
	lastErr   string
	showDebug bool
	quitting  bool

	ctrl     Controller
	quitChan chan struct{}

	width  int
	height int
}

// NewModel creates a new view model. ctrl may be nil for a read-only view.
func NewModel(title string, ctrl Controller, quitChan chan struct{}) Model {
	return Model{
		title:     title,
		connected: true,
		ctrl:      ctrl,
		quitChan:  quitChan,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = protocol.Status(msg)
		m.have = true
		m.connected = true
	case disconnectedMsg:
		m.connected = false
	case errMsg:
		m.lastErr = msg.err.Error()
	}
	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "up", "+", "=":
		return m, m.setGain(m.status.Gain * gainStep)
	case "down", "-":
		return m, m.setGain(m.status.Gain / gainStep)
	case "0":
		return m, m.setGain(1)
	case "m":
		if m.ctrl == nil {
			return m, nil
		}
		mute := !m.status.Muted
		m.status.Muted = mute
		ctrl := m.ctrl
		return m, func() tea.Msg {
			if err := ctrl.SetMute(mute); err != nil {
				return errMsg{err}
			}
			return nil
		}
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

func (m Model) setGain(gain float64) tea.Cmd {
	if m.ctrl == nil || !m.have {
		return nil
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.SetGain(gain); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// View renders the status view
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if !m.connected {
		b.WriteString(warnStyle.Render("Status feed disconnected"))
		b.WriteString("\n\n")
	}
	if !m.have {
		b.WriteString(valueStyle.Render("Waiting for status..."))
		b.WriteString("\n")
		return b.String()
	}

	st := m.status
	field(&b, "Session", st.SessionID)
	field(&b, "Uptime", (time.Duration(st.Uptime) * time.Second).String())
	field(&b, "Stream", fmt.Sprintf("%d Hz, %d ch, %d-byte words, format %d",
		st.Stream.SampleRate, st.Stream.Channels, st.Stream.BytesPerSample, st.Stream.FormatID))
	if st.Recording {
		field(&b, "Output", st.OutputPath)
	} else {
		field(&b, "Output", st.OutputPath+" "+warnStyle.Render("(not recording)"))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Timeline"))
	b.WriteString("\n")
	if !st.Started {
		b.WriteString(valueStyle.Render("  Waiting for first packet"))
		b.WriteString("\n")
	} else {
		field(&b, "  Origin", fmt.Sprintf("%d", st.Origin))
		field(&b, "  Highest", fmt.Sprintf("%d (seq %d)", st.HighestIndex, st.LastSeq))
		field(&b, "  Playback", fmt.Sprintf("%d", st.PlaybackCursor))
		field(&b, "  Write", fmt.Sprintf("%d (%s persisted)", st.WriteCursor, duration(st.SamplesWritten, st.Stream.SampleRate)))
		field(&b, "  Buffered", duration(st.Buffered(), st.Stream.SampleRate))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Counters"))
	b.WriteString("\n")
	field(&b, "  Packets", fmt.Sprintf("%d", st.Packets))
	field(&b, "  Late samples", fmt.Sprintf("%d", st.LateSamples))
	field(&b, "  Zero fills", fmt.Sprintf("%d", st.ZeroFills))
	field(&b, "  Lock misses", fmt.Sprintf("%d", st.LockMisses))
	b.WriteString("\n")

	mute := ""
	if st.Muted {
		mute = " (muted)"
	}
	field(&b, "Monitor", fmt.Sprintf("gain %.2fx %+.1f dB%s", st.Gain, gainDB(st.Gain), mute))

	if m.showDebug {
		b.WriteString("\n")
		field(&b, "Started at", st.StartedAt.Format(time.RFC3339))
		field(&b, "Render lead", fmt.Sprintf("%d samples", int64(st.PlaybackCursor)-int64(st.HighestIndex)))
		if c := st.SenderClock; c != nil {
			field(&b, "Sender clock", fmt.Sprintf("%s, drift %+.1f ppm, jitter %.2f ms", c.Quality, c.DriftPPM, c.JitterMicros/1000))
		}
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("Control failed: " + m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("↑/↓: gain  0: unity  m: mute  d: debug  q: quit"))
	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name + ": "))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func duration(samples uint64, rate int) string {
	if rate <= 0 {
		return fmt.Sprintf("%d samples", samples)
	}
	d := time.Duration(float64(samples) / float64(rate) * float64(time.Second))
	return d.Round(time.Millisecond).String()
}

func gainDB(g float64) float64 {
	if g <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(g)
}
