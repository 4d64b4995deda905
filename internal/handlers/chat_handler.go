package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/careerbridge/chat-service/internal/apperr"
	"github.com/careerbridge/chat-service/internal/auth"
	"github.com/careerbridge/chat-service/internal/cache"
	"github.com/careerbridge/chat-service/internal/chat"
)

type ChatHandler struct {
	resolver *chat.Resolver
	svc      *chat.Service
	presence *cache.PresenceStore
	logger   *zap.SugaredLogger
}

func NewChatHandler(resolver *chat.Resolver, svc *chat.Service, presence *cache.PresenceStore, logger *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{resolver: resolver, svc: svc, presence: presence, logger: logger}
}

func (h *ChatHandler) fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		h.logger.Errorw("chat handler", "path", c.Path(), "err", err)
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": apperr.Code(err)})
}

// ResolveConversation finds or creates the conversation between the
// caller and other_user_id, optionally scoped to job_id.
func (h *ChatHandler) ResolveConversation(c *fiber.Ctx) error {
	claims := auth.ClaimsFrom(c)
	var body struct {
		OtherUserID string `json:"other_user_id"`
		JobID       string `json:"job_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.fail(c, apperr.E(apperr.ErrInvalidArgument, "malformed body"))
	}
	conv, err := h.resolver.Resolve(c.Context(), claims.UserID, body.OtherUserID, body.JobID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": conv})
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	claims := auth.ClaimsFrom(c)
	limit := int64(c.QueryInt("limit", 20))
	skip := int64(c.QueryInt("skip", 0))
	convs, err := h.svc.ListConversations(c.Context(), claims.UserID, limit, skip)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": convs})
}

// GetMessages returns paginated history for a conversation the caller is
// a participant of, oldest first. ?before=RFC3339 pages backwards.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	claims := auth.ClaimsFrom(c)
	convID := c.Params("id")
	limit := int64(c.QueryInt("limit", 50))

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.fail(c, apperr.E(apperr.ErrInvalidArgument, "before must be RFC3339"))
		}
		before = t
	}

	msgs, err := h.svc.History(c.Context(), claims.UserID, convID, before, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": msgs})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	claims := auth.ClaimsFrom(c)
	convID := c.Params("id")
	_, n, err := h.svc.MarkRead(c.Context(), claims.UserID, convID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked": n}})
}

func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	claims := auth.ClaimsFrom(c)
	n, err := h.svc.UnreadCount(c.Context(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread": n}})
}

func (h *ChatHandler) GetPresence(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	p, err := h.presence.Get(c.Context(), userID)
	if err != nil {
		return h.fail(c, apperr.Ef(apperr.ErrInternal, "presence lookup: %v", err))
	}
	return c.JSON(fiber.Map{"data": p})
}
