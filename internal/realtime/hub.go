package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxConnectionsPerUser = 10

// DeliveryEvent is pushed to a user's connected dashboard sessions after a
// dispatch completes. Best-effort only: a dropped connection never affects
// the delivery result.
type DeliveryEvent struct {
	AlertIDs  []int64   `json:"alertIds"`
	Delivered []string  `json:"deliveredChannels"`
	Errors    []string  `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub manages WebSocket connections per user.
type Hub struct {
	mu          sync.Mutex
	connections map[int64]map[*websocket.Conn]bool
	logger      *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		connections: make(map[int64]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// Add registers a connection for a user, capped per user.
func (h *Hub) Add(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connections[userID]; !exists {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[userID]) >= maxConnectionsPerUser {
		h.logger.Warnf("Max websocket connections reached for user %d", userID)
		return
	}
	h.connections[userID][conn] = true
	h.logger.Infof("Added websocket connection for user %d (total: %d)", userID, len(h.connections[userID]))
}

// Remove unregisters a connection for a user.
func (h *Hub) Remove(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, exists := h.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
	}
}

// Broadcast sends a delivery event to all of the user's connections. Writes
// that fail drop the connection.
func (h *Hub) Broadcast(userID int64, event DeliveryEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("Failed to encode delivery event for user %d: %v", userID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conns, exists := h.connections[userID]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to send websocket message to user %d: %v", userID, err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
}
