package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (configure CORS for production)
	},
}

// frame is the wire format written to subscribers.
type frame struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data"`
}

// clientCommand is the wire format read from subscribers.
type clientCommand struct {
	Action  string `json:"action"` // "subscribe" | "unsubscribe"
	Channel string `json:"channel"`
}

// wsClient tracks one connected subscriber and its channel subscriptions.
type wsClient struct {
	conn     *websocket.Conn
	channels map[string]struct{}
	mu       sync.Mutex
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[channel]
	return ok
}

func (c *wsClient) write(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

// Hub fans events out to websocket subscribers by channel name. It is the
// in-process stand-in for a hosted pub/sub service: Trigger is fire-and-
// forget and delivery is best-effort.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Trigger delivers the event to every client subscribed to the channel.
// Errors are logged and swallowed; realtime must never block a send.
func (h *Hub) Trigger(channel, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	f := frame{Channel: channel, Event: event, Data: payload}
	for client := range h.clients {
		if !client.subscribed(channel) {
			continue
		}
		if err := client.write(f); err != nil {
			h.logger.Warn("Push delivery failed",
				zap.String("channel", channel),
				zap.Error(err))
		}
	}
}

// HandleConnection upgrades the request and serves the subscription loop
// until the client disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:     conn,
		channels: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.Debug("Ignoring malformed client command", zap.Error(err))
			continue
		}

		client.mu.Lock()
		switch cmd.Action {
		case "subscribe":
			client.channels[cmd.Channel] = struct{}{}
		case "unsubscribe":
			delete(client.channels, cmd.Channel)
		}
		client.mu.Unlock()
	}
}
