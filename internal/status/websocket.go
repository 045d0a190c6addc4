// ABOUTME: WebSocket status feed
// ABOUTME: Pushes status snapshots to monitors and accepts gain and mute commands
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/esprx/pkg/protocol"
)

const writeDeadline = 10 * time.Second

// handleWebSocket upgrades a monitor connection and serves it
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		s.metrics.RecordHTTPRequest("/ws", r.Method, "400")
		return
	}
	s.metrics.RecordHTTPRequest("/ws", r.Method, "101")
	s.log.Info("Monitor connected", "remote", r.RemoteAddr)

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	s.clientsMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	// First snapshot goes out immediately
	if data, err := s.statusFrame(); err == nil {
		s.enqueue(client, data)
	}

	defer func() {
		s.removeClient(client)
		s.log.Info("Monitor disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("WebSocket read error", "error", err)
			}
			return
		}
		s.handleClientMessage(client, data, r.RemoteAddr)
	}
}

// handleClientMessage applies a command from a monitor
func (s *Server) handleClientMessage(client *wsClient, data []byte, from string) {
	var cmd protocol.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.reply(client, protocol.TypeError, protocol.ErrorPayload{Error: "bad_request", Message: err.Error()})
		return
	}
	if cmd.Cmd != protocol.CmdSet {
		s.reply(client, protocol.TypeError, protocol.ErrorPayload{Error: "unknown_command", Message: cmd.Cmd})
		return
	}
	if s.monitor == nil {
		s.reply(client, protocol.TypeError, protocol.ErrorPayload{Error: "playback_disabled", Message: "playback is not running"})
		return
	}

	s.apply(cmd, from)
	if data, err := s.statusFrame(); err == nil {
		s.enqueue(client, data)
	}
}

func (s *Server) reply(client *wsClient, msgType string, payload interface{}) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.enqueue(client, data)
}

// clientWriter sends queued frames and keepalive pings
func (s *Server) clientWriter(client *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				client.conn.Close()
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug("WebSocket write failed", "error", err)
				client.conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.conn.Close()
				return
			}
		}
	}
}

func (s *Server) statusFrame() ([]byte, error) {
	msg, err := protocol.NewMessage(protocol.TypeStatus, s.Snapshot())
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// broadcast pushes one snapshot to every monitor, skipping slow ones
func (s *Server) broadcast() {
	s.clientsMu.RLock()
	n := len(s.clients)
	s.clientsMu.RUnlock()
	if n == 0 {
		return
	}

	data, err := s.statusFrame()
	if err != nil {
		s.log.Error("Failed to build status frame", "error", err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) enqueue(client *wsClient, data []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (s *Server) removeClient(client *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected monitors
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
