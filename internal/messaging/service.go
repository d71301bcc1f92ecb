package messaging

import (
	"context"
	"strings"
	"unicode/utf8"

	"parishfund/server/internal/apperror"
	"parishfund/server/internal/logger"
	"parishfund/server/internal/models"
)

// HistoryLimit bounds the initial load of a thread
const HistoryLimit = 100

const defaultMaxBodyLength = 5000

// Options tunes a Service
type Options struct {
	EligibleRoles []string
	MaxBodyLength int
	Notifier      Notifier
}

// Service implements the conversation store operations on top of a Repository
type Service struct {
	repo          Repository
	log           logger.Logger
	roles         []string
	maxBodyLength int
	notifier      Notifier
}

func NewService(repo Repository, log logger.Logger, opts Options) *Service {
	maxLen := opts.MaxBodyLength
	if maxLen <= 0 {
		maxLen = defaultMaxBodyLength
	}
	return &Service{
		repo:          repo,
		log:           log,
		roles:         opts.EligibleRoles,
		maxBodyLength: maxLen,
		notifier:      opts.Notifier,
	}
}

// SendCommand is a message submission from the caller
type SendCommand struct {
	RecipientID int64
	Body        string
	ClientToken string
}

func validatePair(me, other int64) error {
	if me <= 0 {
		return apperror.ErrInvalidUser
	}
	if other <= 0 || other == me {
		return apperror.ErrInvalidRecipient
	}
	return nil
}

// ListRecipients returns active, messaging-eligible users other than me
func (s *Service) ListRecipients(ctx context.Context, me int64) ([]models.Recipient, error) {
	if me <= 0 {
		return nil, apperror.ErrInvalidUser
	}
	recipients, err := s.repo.ListRecipients(ctx, me, s.roles)
	if err != nil {
		s.log.WithError(err).WithField("user_id", me).Error("failed to list recipients")
		return nil, apperror.Internal("failed to list recipients", err)
	}
	return recipients, nil
}

// ListConversations returns one entry per counterpart, most recent first
func (s *Service) ListConversations(ctx context.Context, me int64) ([]models.Conversation, error) {
	if me <= 0 {
		return nil, apperror.ErrInvalidUser
	}
	conversations, err := s.repo.ListConversations(ctx, me)
	if err != nil {
		s.log.WithError(err).WithField("user_id", me).Error("failed to list conversations")
		return nil, apperror.Internal("failed to list conversations", err)
	}
	return conversations, nil
}

// ListMessages opens the thread between me and other. Messages addressed to
// me are marked read before the fetch, so the result already reflects it.
// afterID == 0 returns the newest HistoryLimit messages; afterID > 0 returns
// every later message.
func (s *Service) ListMessages(ctx context.Context, me, other, afterID int64) ([]models.Message, error) {
	if err := validatePair(me, other); err != nil {
		return nil, err
	}
	if afterID < 0 {
		return nil, apperror.ErrInvalidCursor
	}

	pair := models.NewPairKey(me, other)
	entry := s.log.WithField("user_id", me).WithField("other_id", other)

	marked, err := s.repo.MarkPairRead(ctx, me, pair)
	if err != nil {
		entry.WithError(err).Error("failed to mark messages read")
		return nil, apperror.Internal("failed to load messages", err)
	}
	if marked > 0 {
		entry.WithField("count", marked).Debug("messages marked read")
	}

	var messages []models.Message
	if afterID == 0 {
		messages, err = s.repo.LatestMessages(ctx, pair, HistoryLimit)
	} else {
		messages, err = s.repo.MessagesAfter(ctx, pair, afterID)
	}
	if err != nil {
		entry.WithError(err).Error("failed to fetch messages")
		return nil, apperror.Internal("failed to load messages", err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// SendMessage stores a message from me. A repeated client token returns the
// original message with Duplicate set instead of inserting again.
func (s *Service) SendMessage(ctx context.Context, me int64, cmd SendCommand) (*models.SendResult, error) {
	if err := validatePair(me, cmd.RecipientID); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(cmd.Body)
	if body == "" {
		return nil, apperror.ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > s.maxBodyLength {
		return nil, apperror.ErrBodyTooLong
	}

	entry := s.log.WithField("user_id", me).WithField("recipient_id", cmd.RecipientID)

	blocked, err := s.repo.IsBlocked(ctx, me, cmd.RecipientID)
	if err != nil {
		entry.WithError(err).Error("failed to check block list")
		return nil, apperror.Internal("failed to send message", err)
	}
	if blocked {
		entry.Info("send rejected: conversation blocked")
		return nil, apperror.ErrConversationBlock
	}

	msg := models.Message{
		SenderID:    me,
		RecipientID: cmd.RecipientID,
		Body:        body,
	}
	if token := strings.TrimSpace(cmd.ClientToken); token != "" {
		msg.ClientToken = &token
	}

	inserted, err := s.repo.InsertMessage(ctx, &msg)
	if err != nil {
		entry.WithError(err).Error("failed to insert message")
		return nil, apperror.Internal("failed to send message", err)
	}

	result := &models.SendResult{ID: msg.ID, CreatedAt: msg.CreatedAt, Duplicate: !inserted}
	if !inserted {
		entry.WithField("message_id", msg.ID).Info("duplicate send ignored")
		return result, nil
	}

	entry.WithField("message_id", msg.ID).Debug("message sent")
	s.notify(ctx, msg)
	return result, nil
}

func (s *Service) notify(ctx context.Context, msg models.Message) {
	if s.notifier == nil {
		return
	}
	unread, err := s.repo.UnreadCount(ctx, msg.RecipientID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", msg.RecipientID).Warn("failed to count unread for push")
		return
	}
	s.notifier.MessageSent(msg, unread)
}

// UnreadCount counts every unread message addressed to me
func (s *Service) UnreadCount(ctx context.Context, me int64) (int, error) {
	if me <= 0 {
		return 0, apperror.ErrInvalidUser
	}
	count, err := s.repo.UnreadCount(ctx, me)
	if err != nil {
		s.log.WithError(err).WithField("user_id", me).Error("failed to count unread messages")
		return 0, apperror.Internal("failed to count unread messages", err)
	}
	return count, nil
}

// BlockUser stops new messages between me and other. History stays visible.
func (s *Service) BlockUser(ctx context.Context, me, other int64) error {
	if err := validatePair(me, other); err != nil {
		return err
	}
	if err := s.repo.Block(ctx, me, other); err != nil {
		s.log.WithError(err).WithField("user_id", me).Error("failed to block user")
		return apperror.Internal("failed to block user", err)
	}
	return nil
}

// UnblockUser lifts a block that me placed on other
func (s *Service) UnblockUser(ctx context.Context, me, other int64) error {
	if err := validatePair(me, other); err != nil {
		return err
	}
	if err := s.repo.Unblock(ctx, me, other); err != nil {
		s.log.WithError(err).WithField("user_id", me).Error("failed to unblock user")
		return apperror.Internal("failed to unblock user", err)
	}
	return nil
}
