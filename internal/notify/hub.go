package notify

import (
	"context"
	"time"

	"github.com/careerbridge/chat-service/internal/models"
)

// UserPusher pushes a payload to every live connection a user holds.
// Implemented by the ws hub; kept as an interface so the sink stays
// decoupled from the transport.
type UserPusher interface {
	SendToUser(userID string, payload any)
}

// HubSink delivers events to participants' personal channels so users not
// currently viewing a conversation still hear about it.
type HubSink struct {
	pusher UserPusher
}

func NewHubSink(p UserPusher) *HubSink {
	return &HubSink{pusher: p}
}

func (s *HubSink) ConversationCreated(_ context.Context, conv *models.Conversation, recipientID string) {
	s.pusher.SendToUser(recipientID, Event{
		Type:           "conversation.created",
		ConversationID: conv.ID.Hex(),
		ActorID:        conv.OtherParticipant(recipientID),
		RecipientID:    recipientID,
		At:             time.Now().UTC(),
	})
}

func (s *HubSink) MessageCreated(_ context.Context, conv *models.Conversation, msg *models.Message) {
	recipient := conv.OtherParticipant(msg.SenderID)
	if recipient == "" {
		return
	}
	s.pusher.SendToUser(recipient, Event{
		Type:           "message.created",
		ConversationID: conv.ID.Hex(),
		ActorID:        msg.SenderID,
		RecipientID:    recipient,
		Message:        msg,
		At:             time.Now().UTC(),
	})
}

func (s *HubSink) MessagesRead(_ context.Context, conv *models.Conversation, readerID string) {
	recipient := conv.OtherParticipant(readerID)
	if recipient == "" {
		return
	}
	s.pusher.SendToUser(recipient, Event{
		Type:           "messages.read",
		ConversationID: conv.ID.Hex(),
		ActorID:        readerID,
		RecipientID:    recipient,
		At:             time.Now().UTC(),
	})
}
