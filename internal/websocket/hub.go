package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"parishfund/server/internal/logger"
	"parishfund/server/internal/models"
)

// Hub maintains the set of active clients and pushes badge updates to them
type Hub struct {
	// Registered clients mapped by user ID
	clients map[int64]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	log logger.Logger

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		log:        log,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Join registers client unless the hub has stopped
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client; it never blocks after the hub has stopped
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// If user already has a connection, close the old one
	if existing, ok := h.clients[client.UserID]; ok {
		close(existing.Send)
	}
	h.clients[client.UserID] = client

	h.log.WithField("user_id", client.UserID).WithField("conn_id", client.ConnID).Info("client connected")
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A replaced connection was already closed on register
	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
		close(client.Send)
		h.log.WithField("user_id", client.UserID).WithField("conn_id", client.ConnID).Info("client disconnected")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Send)
		delete(h.clients, id)
	}
}

// MessageSent pushes the new message and the recipient's unread count
func (h *Hub) MessageSent(msg models.Message, recipientUnread int) {
	now := time.Now()
	h.BroadcastToUser(msg.RecipientID, WSMessage{
		Type: EventMessageReceived,
		Payload: MessagePayload{
			ID:          msg.ID,
			SenderID:    msg.SenderID,
			RecipientID: msg.RecipientID,
			Body:        msg.Body,
			CreatedAt:   msg.CreatedAt,
		},
		Timestamp: now,
	})
	h.BroadcastToUser(msg.RecipientID, WSMessage{
		Type:      EventUnreadCount,
		Payload:   UnreadPayload{Count: recipientUnread},
		Timestamp: now,
	})
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID int64, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, ok := h.clients[userID]; ok {
		select {
		case client.Send <- data:
		default:
			h.log.WithField("user_id", userID).Warn("send buffer full, dropping websocket message")
		}
	}
}

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.clients[userID]
	return ok
}

// GetOnlineUsers returns a list of currently online user IDs
func (h *Hub) GetOnlineUsers() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userIDs := make([]int64, 0, len(h.clients))
	for userID := range h.clients {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// GetOnlineCount returns the number of currently connected clients
func (h *Hub) GetOnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
