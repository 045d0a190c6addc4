// ABOUTME: Tests for the status view model
// ABOUTME: Tests status updates, key handling and rendering
package ui

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/esprx/pkg/protocol"
)

type fakeController struct {
	mu    sync.Mutex
	gains []float64
	mutes []bool
	err   error
}

func (f *fakeController) SetGain(g float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gains = append(f.gains, g)
	return f.err
}

func (f *fakeController) SetMute(m bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes = append(f.mutes, m)
	return f.err
}

func sample() protocol.Status {
	return protocol.Status{
		SessionID:      "s-1",
		Started:        true,
		Origin:         1000,
		HighestIndex:   49999,
		WriteCursor:    1000,
		PlaybackCursor: 10600,
		SamplesWritten: 48000,
		Packets:        48,
		ZeroFills:      2,
		Gain:           1,
		Stream:         protocol.Stream{SampleRate: 48000, Channels: 1, BytesPerSample: 4, FormatID: 1},
		OutputPath:     "out.wav",
		Recording:      true,
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestNewModel(t *testing.T) {
	m := NewModel("esprx", nil, nil)
	if m.have {
		t.Error("expected no status initially")
	}
	if !m.connected {
		t.Error("expected connected initially")
	}
	if !strings.Contains(m.View(), "Waiting for status") {
		t.Error("expected waiting message")
	}
}

func TestStatusMsg(t *testing.T) {
	m, _ := update(NewModel("esprx", nil, nil), StatusMsg(sample()))

	if !m.have || m.status.SessionID != "s-1" {
		t.Fatalf("expected status s-1, got %+v", m.status)
	}

	view := m.View()
	for _, want := range []string{"s-1", "Origin", "1000", "Zero fills", "out.wav", "1s persisted"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestViewBeforeFirstPacket(t *testing.T) {
	st := sample()
	st.Started = false
	m, _ := update(NewModel("esprx", nil, nil), StatusMsg(st))

	if !strings.Contains(m.View(), "Waiting for first packet") {
		t.Error("expected waiting for first packet")
	}
}

func TestViewNotRecording(t *testing.T) {
	m, _ := update(NewModel("esprx", nil, nil), StatusMsg(sample()))
	if strings.Contains(m.View(), "not recording") {
		t.Error("expected no warning while recording")
	}

	st := sample()
	st.Recording = false
	m, _ = update(m, StatusMsg(st))
	if !strings.Contains(m.View(), "not recording") {
		t.Error("expected not recording warning")
	}
}

func TestDisconnected(t *testing.T) {
	m, _ := update(NewModel("esprx", nil, nil), disconnectedMsg{})
	if m.connected {
		t.Error("expected disconnected")
	}
	if !strings.Contains(m.View(), "disconnected") {
		t.Error("expected disconnected banner")
	}
}

func TestGainKeys(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want float64
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, math.Sqrt2},
		{tea.KeyMsg{Type: tea.KeyDown}, 1 / math.Sqrt2},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			ctrl := &fakeController{}
			m, _ := update(NewModel("esprx", ctrl, nil), StatusMsg(sample()))

			_, cmd := update(m, tt.key)
			if cmd == nil {
				t.Fatal("expected a control command")
			}
			cmd()

			if len(ctrl.gains) != 1 || math.Abs(ctrl.gains[0]-tt.want) > 1e-9 {
				t.Errorf("expected gain %v, got %v", tt.want, ctrl.gains)
			}
		})
	}
}

func TestGainKeysWithoutStatus(t *testing.T) {
	ctrl := &fakeController{}
	_, cmd := update(NewModel("esprx", ctrl, nil), tea.KeyMsg{Type: tea.KeyUp})
	if cmd != nil {
		t.Error("expected no command before the first status")
	}
}

func TestMuteKey(t *testing.T) {
	ctrl := &fakeController{}
	m, _ := update(NewModel("esprx", ctrl, nil), StatusMsg(sample()))

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	cmd()

	if len(ctrl.mutes) != 1 || !ctrl.mutes[0] {
		t.Errorf("expected mute request, got %v", ctrl.mutes)
	}
	if !m.status.Muted {
		t.Error("expected optimistic mute in view")
	}
}

func TestControlError(t *testing.T) {
	ctrl := &fakeController{err: errors.New("not connected")}
	m, _ := update(NewModel("esprx", ctrl, nil), StatusMsg(sample()))

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyUp})
	msg := cmd()
	m, _ = update(m, msg)

	if !strings.Contains(m.View(), "not connected") {
		t.Error("expected control error in view")
	}
}

func TestQuitSignals(t *testing.T) {
	quit := make(chan struct{}, 1)
	m, cmd := update(NewModel("esprx", nil, quit), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	select {
	case <-quit:
	default:
		t.Error("expected quit signal")
	}
	if !m.quitting {
		t.Error("expected quitting state")
	}
}

func TestDebugToggle(t *testing.T) {
	st := sample()
	st.SenderClock = &protocol.SenderClock{Quality: "good", DriftPPM: 12.5, JitterMicros: 800}
	m, _ := update(NewModel("esprx", nil, nil), StatusMsg(st))

	if strings.Contains(m.View(), "Render lead") {
		t.Error("expected debug fields hidden by default")
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	view := m.View()
	if !strings.Contains(view, "Render lead") {
		t.Error("expected debug fields")
	}
	if !strings.Contains(view, "drift +12.5 ppm, jitter 0.80 ms") {
		t.Errorf("expected sender clock line, got:\n%s", view)
	}
}
