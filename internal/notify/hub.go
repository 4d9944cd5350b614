package notify

import (
	"sync"

	"github.com/gorilla/websocket"

	"problems-service/internal/logging"
)

// Hub manages dashboard WebSocket connections and broadcasts notifications
// to all of them. Dead connections are dropped on write failure.
type Hub struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// Register adds one client connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.connections[conn] = true
	h.logger.Infof("WebSocket client connected, %d active", len(h.connections))
}

// Unregister removes and closes one client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.connections[conn]; ok {
		delete(h.connections, conn)
		_ = conn.Close()
	}
	h.logger.Infof("WebSocket client disconnected, %d active", len(h.connections))
}

// Broadcast writes one notification to every connected client.
func (h *Hub) Broadcast(notification Notification) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.connections {
		if err := h.logWrite(conn, notification); err != nil {
			delete(h.connections, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) logWrite(conn *websocket.Conn, notification Notification) error {
	if err := conn.WriteJSON(notification); err != nil {
		h.logger.Warnf("Dropping WebSocket client after write failure: %v", err)
		return err
	}
	return nil
}
