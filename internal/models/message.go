package models

import "time"

// Message represents a direct message between two users
type Message struct {
	ID          int64      `json:"id" db:"id"`
	SenderID    int64      `json:"senderId" db:"sender_id"`
	RecipientID int64      `json:"recipientId" db:"recipient_id"`
	Body        string     `json:"body" db:"body"`
	ClientToken *string    `json:"clientToken,omitempty" db:"client_token"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	ReadAt      *time.Time `json:"readAt" db:"read_at"` // Null until the recipient opens the thread
}

// PairKey returns the conversation the message belongs to
func (m *Message) PairKey() PairKey {
	return NewPairKey(m.SenderID, m.RecipientID)
}

// IsRead reports whether the recipient has observed the message
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// PairKey addresses a two-party conversation independent of direction
type PairKey struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

// NewPairKey normalizes an unordered pair of user ids
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// Other returns the participant that is not userID
func (k PairKey) Other(userID int64) int64 {
	if k.Low == userID {
		return k.High
	}
	return k.Low
}

// Conversation is the derived view over all messages sharing a PairKey
type Conversation struct {
	OtherUser   Recipient `json:"otherUser"`
	LastMessage Message   `json:"lastMessage"`
	UnreadCount int       `json:"unreadCount"`
}

// SendResult is returned for both fresh and duplicate submissions
type SendResult struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Duplicate bool      `json:"duplicate"`
}

// Block prevents new messages between UserID and BlockedUserID in either direction
type Block struct {
	UserID        int64     `json:"userId" db:"user_id"`
	BlockedUserID int64     `json:"blockedUserId" db:"blocked_user_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
