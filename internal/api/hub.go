package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/infrastructure/metrics"
)

// Channels a client can subscribe to.
const (
	ChannelSession = "session"
	ChannelModbus  = "modbus"
)

// Event types. The part before the first dot is the channel.
const (
	EventSessionChanged     = "session.changed"
	EventSessionInvalidated = "session.invalidated"
	EventModbusSample       = "modbus.sample"
)

// knownChannels lists what a subscribe request may name.
var knownChannels = map[string]bool{ChannelSession: true, ChannelModbus: true}

// Hub fans console events out to WebSocket clients by channel.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The hub owns each client's send channel: only the call that removes
//     a client from the set closes it.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger.With("component", "websocket"),
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		metrics.WebSocketClients.Dec()
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Inc()
	h.logger.Debug("websocket client connected", "username", c.username, "clients", n)
}

// Unregister removes a client. Repeated calls are no-ops.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	metrics.WebSocketClients.Dec()
	h.logger.Debug("websocket client disconnected", "username", c.username, "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers an event to the clients subscribed to its channel. A
// client whose buffer is full misses the event rather than stalling the
// others.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to encode websocket event", "event", event, "error", err)
		return
	}

	channel := channelOf(event)
	delivered, dropped := 0, 0

	h.mu.RLock()
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.logger.Warn("websocket clients too slow, event dropped", "event", event, "dropped", dropped)
	}
	if delivered > 0 {
		h.logger.Debug("websocket event sent", "event", event, "recipients", delivered)
	}
}

// NotifyInvalidation tells "session" subscribers that the backend rejected
// the session, and where to send the user to log in again. It has the
// signature of apiclient.Options.OnUnauthorized.
func (h *Hub) NotifyInvalidation(inv apiclient.Invalidation) {
	h.Broadcast(EventSessionInvalidated, map[string]any{
		"epoch":    inv.Epoch,
		"method":   inv.Method,
		"path":     inv.Path,
		"redirect": apiclient.LoginRedirect(inv.ReturnPath),
	})
}

// channelOf returns the channel an event is delivered on.
func channelOf(event string) string {
	if i := strings.IndexByte(event, '.'); i > 0 {
		return event[:i]
	}
	return event
}
