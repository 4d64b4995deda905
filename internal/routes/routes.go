package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/careerbridge/chat-service/internal/auth"
	"github.com/careerbridge/chat-service/internal/handlers"
	"github.com/careerbridge/chat-service/internal/ws"
)

func Register(app *fiber.App, verifier *auth.Verifier, h *handlers.ChatHandler, wsHandler *ws.Handler) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	chat := api.Group("/chat")

	chat.Get("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	chat.Get("/ws", websocket.New(wsHandler.Handle))

	authed := chat.Group("", auth.Middleware(verifier))
	authed.Post("/conversations", h.ResolveConversation)
	authed.Get("/conversations", h.ListConversations)
	authed.Get("/conversations/:id/messages", h.GetMessages)
	authed.Post("/conversations/:id/read", h.MarkRead)
	authed.Get("/unread-count", h.UnreadCount)
	authed.Get("/presence/:user_id", h.GetPresence)
}
