package websocket

import "time"

// EventType represents different WebSocket event types
type EventType string

const (
	// Message events
	EventMessageReceived EventType = "message_received"
	EventUnreadCount     EventType = "unread_count"

	// Typing events
	EventTypingStart EventType = "typing_start"
	EventTypingStop  EventType = "typing_stop"

	// Error events
	EventError EventType = "error"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessagePayload announces a new message to its recipient
type MessagePayload struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"senderId"`
	RecipientID int64     `json:"recipientId"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UnreadPayload carries the badge count
type UnreadPayload struct {
	Count int `json:"count"`
}

// TypingPayload represents typing indicator payload
type TypingPayload struct {
	UserID      int64 `json:"userId"`
	RecipientID int64 `json:"recipientId"`
}

// ErrorPayload represents error event payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IncomingMessage represents messages received from clients
type IncomingMessage struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}
