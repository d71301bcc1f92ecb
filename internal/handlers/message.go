package handlers

import (
	"context"
	"strconv"

	"parishfund/server/internal/messaging"
	"parishfund/server/internal/middleware"
	"parishfund/server/internal/models"

	"github.com/gofiber/fiber/v2"
)

// MessageService is the conversation store as seen by the HTTP layer
type MessageService interface {
	ListRecipients(ctx context.Context, me int64) ([]models.Recipient, error)
	ListConversations(ctx context.Context, me int64) ([]models.Conversation, error)
	ListMessages(ctx context.Context, me, other, afterID int64) ([]models.Message, error)
	SendMessage(ctx context.Context, me int64, cmd messaging.SendCommand) (*models.SendResult, error)
	UnreadCount(ctx context.Context, me int64) (int, error)
	BlockUser(ctx context.Context, me, other int64) error
	UnblockUser(ctx context.Context, me, other int64) error
}

// MessageHandler serves the messaging endpoints
type MessageHandler struct {
	svc MessageService
}

func NewMessageHandler(svc MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessageRequest represents send message request body
type SendMessageRequest struct {
	RecipientID int64  `json:"recipientId"`
	Body        string `json:"body"`
	ClientToken string `json:"clientToken"`
}

// GetRecipients lists the users the caller may message
func (h *MessageHandler) GetRecipients(c *fiber.Ctx) error {
	recipients, err := h.svc.ListRecipients(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    recipients,
	})
}

// GetConversations returns the caller's conversation list, most recent first
func (h *MessageHandler) GetConversations(c *fiber.Ctx) error {
	conversations, err := h.svc.ListConversations(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conversations,
	})
}

// GetMessages opens a thread. Pass after_id to poll for newer messages.
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	otherID, ok := userIDParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	var afterID int64
	if raw := c.Query("after_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, "Invalid after_id")
		}
		afterID = parsed
	}

	messages, err := h.svc.ListMessages(c.UserContext(), middleware.GetUserID(c), otherID, afterID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    messages,
	})
}

// SendMessage submits a direct message
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.svc.SendMessage(c.UserContext(), middleware.GetUserID(c), messaging.SendCommand{
		RecipientID: req.RecipientID,
		Body:        req.Body,
		ClientToken: req.ClientToken,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	status := fiber.StatusCreated
	if result.Duplicate {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetUnreadCount returns the badge count for the caller
func (h *MessageHandler) GetUnreadCount(c *fiber.Ctx) error {
	count, err := h.svc.UnreadCount(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"count": count,
		},
	})
}

// BlockUser stops new messages with another user
func (h *MessageHandler) BlockUser(c *fiber.Ctx) error {
	otherID, ok := userIDParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.svc.BlockUser(c.UserContext(), middleware.GetUserID(c), otherID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User blocked",
	})
}

// UnblockUser lifts a block placed by the caller
func (h *MessageHandler) UnblockUser(c *fiber.Ctx) error {
	otherID, ok := userIDParam(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.svc.UnblockUser(c.UserContext(), middleware.GetUserID(c), otherID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User unblocked",
	})
}
