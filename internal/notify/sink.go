package notify

import (
	"context"
	"time"

	"github.com/careerbridge/chat-service/internal/models"
)

// Event is the payload pushed to notification channels. Type is one of
// "conversation.created", "message.created", "messages.read".
type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id"`
	ActorID        string          `json:"actor_id"`
	RecipientID    string          `json:"recipient_id,omitempty"`
	Message        *models.Message `json:"message,omitempty"`
	At             time.Time       `json:"at"`
}

// Sink receives chat events for out-of-band delivery. All methods are
// fire-and-forget: implementations log failures and never propagate them,
// so a broken notification path cannot fail a resolve or a send.
type Sink interface {
	ConversationCreated(ctx context.Context, conv *models.Conversation, recipientID string)
	MessageCreated(ctx context.Context, conv *models.Conversation, msg *models.Message)
	MessagesRead(ctx context.Context, conv *models.Conversation, readerID string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) ConversationCreated(context.Context, *models.Conversation, string) {}
func (NopSink) MessageCreated(context.Context, *models.Conversation, *models.Message) {
}
func (NopSink) MessagesRead(context.Context, *models.Conversation, string) {}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) ConversationCreated(ctx context.Context, conv *models.Conversation, recipientID string) {
	for _, s := range m {
		s.ConversationCreated(ctx, conv, recipientID)
	}
}

func (m MultiSink) MessageCreated(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	for _, s := range m {
		s.MessageCreated(ctx, conv, msg)
	}
}

func (m MultiSink) MessagesRead(ctx context.Context, conv *models.Conversation, readerID string) {
	for _, s := range m {
		s.MessagesRead(ctx, conv, readerID)
	}
}
