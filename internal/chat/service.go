package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/careerbridge/chat-service/internal/apperr"
	"github.com/careerbridge/chat-service/internal/models"
	"github.com/careerbridge/chat-service/internal/notify"
	"github.com/careerbridge/chat-service/internal/repository"
)

// Service owns message creation and read-state mutation. Every mutating
// operation validates conversation membership first; validation and
// policy failures never leave partial writes behind.
type Service struct {
	convs   repository.ConversationRepo
	msgs    repository.MessageRepo
	limiter RateLimiter
	sink    notify.Sink
	logger  *zap.SugaredLogger

	maxChars int
}

func NewService(
	convs repository.ConversationRepo,
	msgs repository.MessageRepo,
	limiter RateLimiter,
	sink notify.Sink,
	logger *zap.SugaredLogger,
	maxChars int,
) *Service {
	return &Service{
		convs:    convs,
		msgs:     msgs,
		limiter:  limiter,
		sink:     sink,
		logger:   logger,
		maxChars: maxChars,
	}
}

// ConversationForUser loads a conversation and enforces that userID is a
// participant. NotFound for a bad id, Forbidden for a non-member.
func (s *Service) ConversationForUser(ctx context.Context, userID, convID string) (*models.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(convID)
	if err != nil {
		return nil, apperr.E(apperr.ErrNotFound, "conversation does not exist")
	}
	conv, err := s.convs.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.E(apperr.ErrNotFound, "conversation does not exist")
		}
		return nil, apperr.Ef(apperr.ErrInternal, "conversation lookup: %v", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.E(apperr.ErrForbidden, "not a participant of this conversation")
	}
	return conv, nil
}

// SendMessage validates, persists and returns the new message, touching
// the conversation's last-message pointer. Rejections happen before any
// write: nothing is persisted for an invalid, rate-limited or
// policy-violating send.
func (s *Service) SendMessage(ctx context.Context, senderID, convID, content string) (*models.Conversation, *models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, apperr.E(apperr.ErrInvalidArgument, "message content is empty")
	}
	if utf8.RuneCountInString(content) > s.maxChars {
		return nil, nil, apperr.Ef(apperr.ErrInvalidArgument, "message exceeds %d characters", s.maxChars)
	}
	if ViolatesContentPolicy(content) {
		return nil, nil, apperr.E(apperr.ErrPolicyViolation, "links and phone numbers are not allowed in messages")
	}

	conv, err := s.ConversationForUser(ctx, senderID, convID)
	if err != nil {
		return nil, nil, err
	}

	// only sends that passed validation and membership consume quota
	ok, err := s.limiter.Allow(ctx, senderID)
	if err != nil {
		return nil, nil, apperr.Ef(apperr.ErrInternal, "rate limiter: %v", err)
	}
	if !ok {
		return nil, nil, apperr.E(apperr.ErrRateLimited, "too many messages, slow down")
	}

	msg, err := s.msgs.Insert(ctx, &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
	})
	if err != nil {
		// the message never made it to the store, so the sender keeps
		// the window slot it was charged for
		s.limiter.Refund(ctx, senderID)
		return nil, nil, apperr.Ef(apperr.ErrInternal, "message insert: %v", err)
	}
	if err := s.convs.TouchLastMessage(ctx, conv.ID, msg.ID, msg.CreatedAt); err != nil {
		// message is durable; the denormalized pointer catches up on the
		// next send
		s.logger.Warnw("touch last message", "conversation", conv.ID.Hex(), "err", err)
	}
	conv.LastMessageID = msg.ID
	conv.LastMessageAt = msg.CreatedAt

	s.sink.MessageCreated(ctx, conv, msg)
	return conv, msg, nil
}

// MarkRead flips the read flag on every message not authored by readerID.
// Idempotent: a second call with nothing unread is a successful no-op.
func (s *Service) MarkRead(ctx context.Context, readerID, convID string) (*models.Conversation, int64, error) {
	conv, err := s.ConversationForUser(ctx, readerID, convID)
	if err != nil {
		return nil, 0, err
	}
	n, err := s.msgs.MarkRead(ctx, conv.ID, readerID, time.Now().UTC())
	if err != nil {
		return nil, 0, apperr.Ef(apperr.ErrInternal, "mark read: %v", err)
	}
	if n > 0 {
		s.sink.MessagesRead(ctx, conv, readerID)
	}
	return conv, n, nil
}

// History returns a page of messages in chronological order.
func (s *Service) History(ctx context.Context, userID, convID string, before time.Time, limit int64) ([]*models.Message, error) {
	conv, err := s.ConversationForUser(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	msgs, err := s.msgs.ListByConversation(ctx, conv.ID, before, limit)
	if err != nil {
		return nil, apperr.Ef(apperr.ErrInternal, "message history: %v", err)
	}
	return msgs, nil
}

// ListConversations returns the caller's conversations, most recent
// activity first.
func (s *Service) ListConversations(ctx context.Context, userID string, limit, skip int64) ([]*models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	convs, err := s.convs.ListForUser(ctx, userID, limit, skip)
	if err != nil {
		return nil, apperr.Ef(apperr.ErrInternal, "list conversations: %v", err)
	}
	return convs, nil
}

// UnreadCount aggregates unread messages addressed to userID across all of
// their conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ids, err := s.convs.IDsForUser(ctx, userID)
	if err != nil {
		return 0, apperr.Ef(apperr.ErrInternal, "list conversations: %v", err)
	}
	n, err := s.msgs.CountUnread(ctx, ids, userID)
	if err != nil {
		return 0, apperr.Ef(apperr.ErrInternal, "count unread: %v", err)
	}
	return n, nil
}
