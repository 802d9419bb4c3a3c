package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types on the wire.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeResponse    = "response"
	WSTypeEvent       = "event"
	WSTypeError       = "error"
)

const (
	wsSendBufferSize = 64
	wsWriteWait      = 10 * time.Second

	defaultWSMaxMessage   = 8192
	defaultWSPingInterval = 30 * time.Second
	defaultWSPongTimeout  = 10 * time.Second
)

// WSMessage is the envelope for both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names channels for subscribe and unsubscribe.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// inbound is a client frame with the payload left undecoded.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// WSClient is one browser connection. The read pump owns subscription
// changes; Broadcast reads them under chMu.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	username string

	chMu     sync.RWMutex
	channels map[string]bool
}

func (c *WSClient) subscribed(channel string) bool {
	c.chMu.RLock()
	defer c.chMu.RUnlock()
	return c.channels[channel]
}

// setChannels flips each channel to on and returns the channels in effect.
func (c *WSClient) setChannels(names []string, on bool) []string {
	c.chMu.Lock()
	defer c.chMu.Unlock()
	for _, name := range names {
		if on {
			c.channels[name] = true
		} else {
			delete(c.channels, name)
		}
	}
	active := make([]string, 0, len(c.channels))
	for name := range c.channels {
		active = append(active, name)
	}
	slices.Sort(active)
	return active
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced on the HTTP routes; the socket sits behind the
	// session guard.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades a guarded request and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]bool),
	}
	if u := s.store.User(); u != nil {
		client.username = u.Username
	}

	s.hub.Register(client)
	go client.writePump()
	go client.readPump()
}

func (c *WSClient) limits() (maxMessage int64, ping, pong time.Duration) {
	cfg := c.hub.cfg
	maxMessage, ping, pong = defaultWSMaxMessage, defaultWSPingInterval, defaultWSPongTimeout
	if cfg.MaxMessageSize > 0 {
		maxMessage = int64(cfg.MaxMessageSize)
	}
	if cfg.PingInterval > 0 {
		ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	return maxMessage, ping, pong
}

// readPump handles client frames until the connection fails.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	maxMessage, ping, pong := c.limits()
	deadline := ping + pong
	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(deadline)) //nolint:errcheck // reset on every pong
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", "username", c.username, "error", err)
			}
			return
		}
		c.reply(c.handle(data))
	}
}

// handle turns one client frame into its reply.
func (c *WSClient) handle(data []byte) WSMessage {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return WSMessage{Type: WSTypeError, Payload: map[string]string{"error": "invalid message"}}
	}

	switch msg.Type {
	case WSTypePing:
		return WSMessage{Type: WSTypePong, ID: msg.ID}
	case WSTypeSubscribe, WSTypeUnsubscribe:
		names, err := parseChannels(msg.Payload)
		if err != nil {
			return WSMessage{Type: WSTypeError, ID: msg.ID, Payload: map[string]string{"error": err.Error()}}
		}
		active := c.setChannels(names, msg.Type == WSTypeSubscribe)
		return WSMessage{Type: WSTypeResponse, ID: msg.ID, Payload: map[string]any{"channels": active}}
	}
	return WSMessage{Type: WSTypeError, ID: msg.ID, Payload: map[string]string{"error": "unknown message type: " + msg.Type}}
}

// parseChannels accepts only channels the hub publishes on.
func parseChannels(raw json.RawMessage) ([]string, error) {
	var p WSSubscribePayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || len(p.Channels) == 0 {
		return nil, errors.New("payload.channels is required")
	}
	var unknown []string
	for _, name := range p.Channels {
		if !knownChannels[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, errors.New("unknown channels: " + strings.Join(unknown, ", "))
	}
	return p.Channels, nil
}

// reply queues a direct answer; it is dropped if the client is backed up
// or already unregistered.
func (c *WSClient) reply(msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump drains the send queue and keeps the link alive with pings.
// It exits when the hub closes the queue or a write fails.
func (c *WSClient) writePump() {
	_, ping, _ := c.limits()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck // write fails on its own
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck // write fails on its own
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
