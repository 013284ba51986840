// Package events provides a WebSocket broadcast hub for record-change
// notifications.
//
// After a committed mutation the API server publishes a message describing
// the change; every connected client receives it, enabling other devices of
// the same user to pull promptly instead of waiting for their next periodic
// sync.
package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType defines the type of broadcast message.
type MessageType string

const (
	// MessageTypeTaskUpdate indicates a task was created, updated, or deleted.
	MessageTypeTaskUpdate MessageType = "task_update"

	// MessageTypeGoalUpdate indicates a goal was created, updated, or deleted.
	MessageTypeGoalUpdate MessageType = "goal_update"

	// MessageTypeSessionRecorded indicates a pomodoro session was stored.
	MessageTypeSessionRecorded MessageType = "session_recorded"

	// MessageTypeStatsUpdate indicates user statistics were overwritten.
	MessageTypeStatsUpdate MessageType = "stats_update"
)

// Message is a broadcast payload.
type Message struct {
	Type      MessageType     `json:"type"`
	UserID    int64           `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RecordChange describes a single record mutation.
type RecordChange struct {
	ClientID int64  `json:"client_id,omitempty"`
	Action   string `json:"action"` // created, updated, deleted
}

// Hub manages WebSocket connections and broadcasts messages to all of them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	h.wg.Add(1)
	go h.broadcastLoop()

	return h
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// Publish queues a message for broadcast. Messages are dropped when the
// channel is full rather than blocking a request handler.
func (h *Hub) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		h.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// PublishChange is a convenience wrapper for record mutations.
func (h *Hub) PublishChange(typ MessageType, userID int64, change RecordChange) {
	data, err := json.Marshal(change)
	if err != nil {
		h.logger.Printf("Failed to marshal change: %v", err)
		return
	}
	h.Publish(Message{Type: typ, UserID: userID, Data: data})
}

// broadcastLoop fans queued messages out to all connected clients.
func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					h.logger.Printf("Failed to send to client: %v", err)
					h.removeClient(conn)
				}
			}
		}
	}
}

// HandleWS upgrades an HTTP connection and registers it with the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Printf("Event client connected (total: %d)", count)

	go h.readLoop(conn)
}

// readLoop keeps the connection alive and detects disconnects. Client
// messages are not processed.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)

	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, exists := h.clients[conn]; exists {
		delete(h.clients, conn)
		count := len(h.clients)
		h.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Printf("Event client disconnected (total: %d)", count)
	} else {
		h.clientsMu.Unlock()
	}
}

// ClientCount returns the current number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
