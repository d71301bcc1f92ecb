package messaging

import (
	"context"

	"parishfund/server/internal/models"
)

// Repository is the storage contract behind Service. Implementations must
// enforce client-token uniqueness themselves (a unique index), never by
// check-then-insert.
type Repository interface {
	ListRecipients(ctx context.Context, userID int64, roles []string) ([]models.Recipient, error)
	ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error)

	// MarkPairRead sets read_at on every unread message in pair addressed to userID
	MarkPairRead(ctx context.Context, userID int64, pair models.PairKey) (int64, error)
	// LatestMessages returns at most limit newest messages, in chronological order
	LatestMessages(ctx context.Context, pair models.PairKey, limit int) ([]models.Message, error)
	// MessagesAfter returns every message with id > afterID, in chronological order
	MessagesAfter(ctx context.Context, pair models.PairKey, afterID int64) ([]models.Message, error)

	// InsertMessage stores msg and fills ID and CreatedAt. When msg carries a
	// client token that already exists, nothing is inserted, msg is replaced
	// by the stored message and inserted is false.
	InsertMessage(ctx context.Context, msg *models.Message) (inserted bool, err error)
	UnreadCount(ctx context.Context, userID int64) (int, error)

	// IsBlocked reports a block between a and b in either direction
	IsBlocked(ctx context.Context, a, b int64) (bool, error)
	Block(ctx context.Context, userID, blockedUserID int64) error
	Unblock(ctx context.Context, userID, blockedUserID int64) error
}

// Notifier is told about freshly stored messages so it can push badge updates
type Notifier interface {
	MessageSent(msg models.Message, recipientUnread int)
}
