package handlers

import (
	ws "parishfund/server/internal/websocket"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WebSocketHandler attaches authenticated connections to the hub
type WebSocketHandler struct {
	hub *ws.Hub
}

func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Upgrade checks if the request should be upgraded to WebSocket
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"error":   "WebSocket upgrade required",
	})
}

// Handle serves one connection until it closes
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	// Locals are copied from the upgraded request, set by auth middleware
	userID, _ := c.Locals("userID").(int64)
	if userID <= 0 {
		c.Close()
		return
	}

	client := ws.NewClient(userID, c, h.hub)
	if !h.hub.Join(client) {
		c.Close()
		return
	}

	go client.WritePump()
	client.ReadPump() // This blocks until connection closes
}

// Stats returns WebSocket connection statistics
func (h *WebSocketHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"onlineUsers": h.hub.GetOnlineCount(),
			"userIds":     h.hub.GetOnlineUsers(),
		},
	})
}
