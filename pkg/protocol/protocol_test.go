// ABOUTME: Tests for status protocol messages and the WebSocket client
// ABOUTME: Verifies envelopes, command encoding and status routing
package protocol

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage(TypeStatus, Status{SessionID: "abc", Packets: 3})
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.Type != TypeStatus {
		t.Errorf("expected type status, got %s", decoded.Type)
	}

	var st Status
	if err := decoded.Decode(&st); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if st.SessionID != "abc" || st.Packets != 3 {
		t.Errorf("expected abc/3, got %s/%d", st.SessionID, st.Packets)
	}
}

func TestCommandOmitsUnsetFields(t *testing.T) {
	gain := 2.5
	data, err := json.Marshal(Command{Cmd: CmdSet, Gain: &gain})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if got := string(data); got != `{"cmd":"set","gain":2.5}` {
		t.Errorf("expected gain-only command, got %s", got)
	}
}

func TestStatusBuffered(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want uint64
	}{
		{"not started", Status{HighestIndex: 10}, 0},
		{"caught up", Status{Started: true, WriteCursor: 100, HighestIndex: 99}, 0},
		{"behind", Status{Started: true, WriteCursor: 100, HighestIndex: 1123}, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.Buffered(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestClientReceivesStatusAndSendsCommands(t *testing.T) {
	upgrader := websocket.Upgrader{}
	commands := make(chan Command, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StatusPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		msg, _ := NewMessage(TypeStatus, Status{SessionID: "feed", Gain: 1})
		conn.WriteJSON(msg)

		var cmd Command
		if err := conn.ReadJSON(&cmd); err == nil {
			commands <- cmd
		}
	}))
	defer srv.Close()

	c := NewClient(Config{ServerAddr: strings.TrimPrefix(srv.URL, "http://")})
	if err := c.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer c.Close()

	select {
	case st := <-c.Statuses:
		if st.SessionID != "feed" {
			t.Errorf("expected session feed, got %s", st.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status received")
	}

	if err := c.SetGain(3); err != nil {
		t.Fatalf("set gain failed: %v", err)
	}
	select {
	case cmd := <-commands:
		if cmd.Cmd != CmdSet || cmd.Gain == nil || *cmd.Gain != 3 {
			t.Errorf("expected set gain 3, got %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command not received")
	}
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient(Config{ServerAddr: "127.0.0.1:1"})
	if err := c.SetMute(true); err == nil {
		t.Error("expected error when not connected")
	}
}
