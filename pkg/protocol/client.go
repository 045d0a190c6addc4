// ABOUTME: WebSocket client for the receiver status feed
// ABOUTME: Handles connection, message routing and control commands
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StatusPath is the WebSocket endpoint on the status API
const StatusPath = "/ws"

// Config holds client configuration
type Config struct {
	ServerAddr  string
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// Client follows a receiver's status feed
type Client struct {
	config Config
	log    *slog.Logger
	conn   *websocket.Conn
	mu     sync.RWMutex
	wmu    sync.Mutex

	// Message channels
	Statuses chan Status
	Errors   chan ErrorPayload

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}

	return &Client{
		config:   config,
		log:      logger,
		Statuses: make(chan Status, 16),
		Errors:   make(chan ErrorPayload, 4),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect dials the status feed and starts the reader
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: StatusPath}
	c.log.Info("Connecting to receiver", "url", u.String())

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()
	return nil
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Status feed read error", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debug("Ignoring non-text message", "type", messageType)
			continue
		}
		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes one envelope
func (c *Client) handleJSONMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn("Failed to parse message", "error", err)
		return
	}

	switch msg.Type {
	case TypeStatus:
		var st Status
		if err := msg.Decode(&st); err != nil {
			c.log.Warn("Bad status message", "error", err)
			return
		}
		// Keep only the freshest snapshot when the consumer falls behind
		select {
		case c.Statuses <- st:
		default:
			select {
			case <-c.Statuses:
			default:
			}
			select {
			case c.Statuses <- st:
			default:
			}
		}

	case TypeError:
		var e ErrorPayload
		if err := msg.Decode(&e); err != nil {
			c.log.Warn("Bad error message", "error", err)
			return
		}
		select {
		case c.Errors <- e:
		case <-time.After(100 * time.Millisecond):
			c.log.Warn("Error channel full, dropping message", "error", e.Error)
		}

	default:
		c.log.Debug("Unknown message type", "type", msg.Type)
	}
}

// sendJSON sends a command
func (c *Client) sendJSON(v interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

// SetGain asks the receiver to change the monitor gain
func (c *Client) SetGain(gain float64) error {
	return c.sendJSON(Command{Cmd: CmdSet, Gain: &gain})
}

// SetMute asks the receiver to mute or unmute the monitor
func (c *Client) SetMute(mute bool) error {
	return c.sendJSON(Command{Cmd: CmdSet, Mute: &mute})
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.log.Info("Status feed closed")
	}
}

// Done is closed once the client has disconnected
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
