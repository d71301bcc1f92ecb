package messaging

import (
	"context"

	"parishfund/server/internal/database"
	"parishfund/server/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// PostgresRepository stores messages and blocks in PostgreSQL
type PostgresRepository struct {
	db database.DBTX
}

func NewPostgresRepository(db database.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const messageColumns = `id, sender_id, recipient_id, body, client_token, created_at, read_at`

func scanMessage(row pgx.Row, m *models.Message) error {
	return row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.ClientToken, &m.CreatedAt, &m.ReadAt)
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *PostgresRepository) ListRecipients(ctx context.Context, userID int64, roles []string) ([]models.Recipient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, role
		FROM users
		WHERE is_active AND id <> $1 AND role = ANY($2)
		ORDER BY name, id
	`, userID, roles)
	if err != nil {
		return nil, errors.Wrap(err, "messagingRepo.ListRecipients.Query")
	}
	defer rows.Close()

	recipients := []models.Recipient{}
	for rows.Next() {
		var rc models.Recipient
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.Role); err != nil {
			return nil, errors.Wrap(err, "messagingRepo.ListRecipients.Scan")
		}
		recipients = append(recipients, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "messagingRepo.ListRecipients.Rows")
	}
	return recipients, nil
}

func (r *PostgresRepository) ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error) {
	// Last message is picked by max(id) so same-timestamp inserts stay deterministic
	rows, err := r.db.Query(ctx, `
		WITH pairs AS (
			SELECT
				pair_low, pair_high,
				MAX(id) AS last_id,
				COUNT(*) FILTER (WHERE recipient_id = $1 AND read_at IS NULL) AS unread
			FROM messages
			WHERE pair_low = $1 OR pair_high = $1
			GROUP BY pair_low, pair_high
		)
		SELECT
			m.id, m.sender_id, m.recipient_id, m.body, m.client_token, m.created_at, m.read_at,
			p.unread,
			CASE WHEN p.pair_low = $1 THEN p.pair_high ELSE p.pair_low END AS other_id,
			COALESCE(u.name, ''), COALESCE(u.role, '')
		FROM pairs p
		INNER JOIN messages m ON m.id = p.last_id
		LEFT JOIN users u ON u.id = CASE WHEN p.pair_low = $1 THEN p.pair_high ELSE p.pair_low END
		ORDER BY m.created_at DESC, m.id DESC
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "messagingRepo.ListConversations.Query")
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		m := &c.LastMessage
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.ClientToken, &m.CreatedAt, &m.ReadAt,
			&c.UnreadCount,
			&c.OtherUser.ID, &c.OtherUser.Name, &c.OtherUser.Role,
		); err != nil {
			return nil, errors.Wrap(err, "messagingRepo.ListConversations.Scan")
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "messagingRepo.ListConversations.Rows")
	}
	return conversations, nil
}

func (r *PostgresRepository) MarkPairRead(ctx context.Context, userID int64, pair models.PairKey) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET read_at = now()
		WHERE pair_low = $1 AND pair_high = $2 AND recipient_id = $3 AND read_at IS NULL
	`, pair.Low, pair.High, userID)
	if err != nil {
		return 0, errors.Wrap(err, "messagingRepo.MarkPairRead.Exec")
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) LatestMessages(ctx context.Context, pair models.PairKey, limit int) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE pair_low = $1 AND pair_high = $2
		ORDER BY id DESC
		LIMIT $3
	`, pair.Low, pair.High, limit)
	if err != nil {
		return nil, errors.Wrap(err, "messagingRepo.LatestMessages.Query")
	}

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, errors.Wrap(err, "messagingRepo.LatestMessages.Scan")
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *PostgresRepository) MessagesAfter(ctx context.Context, pair models.PairKey, afterID int64) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE pair_low = $1 AND pair_high = $2 AND id > $3
		ORDER BY id ASC
	`, pair.Low, pair.High, afterID)
	if err != nil {
		return nil, errors.Wrap(err, "messagingRepo.MessagesAfter.Query")
	}

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, errors.Wrap(err, "messagingRepo.MessagesAfter.Scan")
	}
	return messages, nil
}

func (r *PostgresRepository) InsertMessage(ctx context.Context, msg *models.Message) (bool, error) {
	pair := msg.PairKey()

	// The partial unique index settles racing retries; the loser gets no row back
	err := r.db.QueryRow(ctx, `
		INSERT INTO messages (sender_id, recipient_id, pair_low, pair_high, body, client_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (client_token) WHERE client_token IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`, msg.SenderID, msg.RecipientID, pair.Low, pair.High, msg.Body, msg.ClientToken).
		Scan(&msg.ID, &msg.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || msg.ClientToken == nil {
		return false, errors.Wrap(err, "messagingRepo.InsertMessage.Insert")
	}

	var existing models.Message
	row := r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE client_token = $1`, *msg.ClientToken)
	if err := scanMessage(row, &existing); err != nil {
		return false, errors.Wrap(err, "messagingRepo.InsertMessage.LoadDuplicate")
	}
	*msg = existing
	return false, nil
}

func (r *PostgresRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "messagingRepo.UnreadCount.Scan")
	}
	return count, nil
}

func (r *PostgresRepository) IsBlocked(ctx context.Context, a, b int64) (bool, error) {
	var blocked bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_blocks
			WHERE (user_id = $1 AND blocked_user_id = $2)
			   OR (user_id = $2 AND blocked_user_id = $1)
		)
	`, a, b).Scan(&blocked)
	if err != nil {
		return false, errors.Wrap(err, "messagingRepo.IsBlocked.Scan")
	}
	return blocked, nil
}

func (r *PostgresRepository) Block(ctx context.Context, userID, blockedUserID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_blocks (user_id, blocked_user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, blocked_user_id) DO NOTHING
	`, userID, blockedUserID)
	if err != nil {
		return errors.Wrap(err, "messagingRepo.Block.Exec")
	}
	return nil
}

func (r *PostgresRepository) Unblock(ctx context.Context, userID, blockedUserID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM user_blocks WHERE user_id = $1 AND blocked_user_id = $2
	`, userID, blockedUserID)
	if err != nil {
		return errors.Wrap(err, "messagingRepo.Unblock.Exec")
	}
	return nil
}
