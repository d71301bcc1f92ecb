package routes

import (
	"parishfund/server/internal/handlers"
	"parishfund/server/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Messages  *handlers.MessageHandler
	Timer     *handlers.TimerHandler
	WebSocket *handlers.WebSocketHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, jwtSecret []byte, h Handlers) {
	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Parish fund API is running",
		})
	})

	auth := middleware.AuthMiddleware(jwtSecret)

	// Message routes (protected)
	messages := api.Group("/messages", auth)
	messages.Get("/recipients", h.Messages.GetRecipients)
	messages.Get("/conversations", h.Messages.GetConversations)
	messages.Get("/unread-count", middleware.PollRateLimiter(), h.Messages.GetUnreadCount)
	messages.Get("/:userId", middleware.PollRateLimiter(), h.Messages.GetMessages)
	messages.Post("/", middleware.SendRateLimiter(), h.Messages.SendMessage)

	// Block routes (protected)
	blocks := api.Group("/blocks", auth)
	blocks.Post("/:userId", h.Messages.BlockUser)
	blocks.Delete("/:userId", h.Messages.UnblockUser)

	// Call timer routes (protected)
	sessions := api.Group("/call-sessions", auth)
	sessions.Get("/:sessionId/timer", h.Timer.GetSnapshot)
	sessions.Put("/:sessionId/timer", h.Timer.PutSnapshot)

	// WebSocket route (protected)
	if h.WebSocket != nil {
		api.Get("/ws", auth, h.WebSocket.Upgrade, websocket.New(h.WebSocket.Handle))
		api.Get("/ws/stats", auth, h.WebSocket.Stats)
	}
}
