// Package api provides WebSocket functionality for run notifications.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/replaylab/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// MessageType defines WebSocket message types.
type MessageType string

const (
	MsgTypeRunCompleted MessageType = "run_completed"
	MsgTypeHeartbeat    MessageType = "heartbeat"
	MsgTypeError        MessageType = "error"
)

// WSMessage is a WebSocket message.
type WSMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// wsClient is one WebSocket client connection.
type wsClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages WebSocket connections and broadcasts run events.
type Hub struct {
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local tooling, any origin
			},
		},
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("WebSocket client connected", zap.String("id", client.id))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.logger.Debug("WebSocket client disconnected", zap.String("id", client.id))

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-ticker.C:
			h.sendMessage(WSMessage{
				Type:      MsgTypeHeartbeat,
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// ServeWS upgrades an HTTP request to a WebSocket connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastRunCompleted notifies all clients that a simulation finished.
func (h *Hub) BroadcastRunCompleted(result *types.SimulationResult) {
	data, err := json.Marshal(map[string]interface{}{
		"id":           result.ID,
		"finalCapital": result.FinalCapital,
		"tradeCount":   result.TradeCount,
	})
	if err != nil {
		return
	}
	h.sendMessage(WSMessage{
		Type:      MsgTypeRunCompleted,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Hub) sendMessage(msg WSMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		// Broadcast buffer full, drop the message.
	}
}

// readPump drains client messages; clients only listen, so anything
// received is discarded after resetting the read deadline.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump forwards hub messages to the client connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
