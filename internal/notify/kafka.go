package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/careerbridge/chat-service/internal/models"
)

// KafkaSink publishes chat events to the notifications topic consumed by
// the platform's notification service.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.SugaredLogger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.SugaredLogger) *KafkaSink {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &KafkaSink{writer: w, logger: logger}
}

func (s *KafkaSink) Close() error { return s.writer.Close() }

func (s *KafkaSink) publish(ctx context.Context, key string, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		s.logger.Errorw("marshal notification", "type", ev.Type, "err", err)
		return
	}
	msg := kafka.Message{Key: []byte(key), Value: b, Time: time.Now()}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Errorw("kafka publish", "type", ev.Type, "conversation", ev.ConversationID, "err", err)
	}
}

func (s *KafkaSink) ConversationCreated(ctx context.Context, conv *models.Conversation, recipientID string) {
	s.publish(ctx, recipientID, Event{
		Type:           "conversation.created",
		ConversationID: conv.ID.Hex(),
		ActorID:        conv.OtherParticipant(recipientID),
		RecipientID:    recipientID,
		At:             time.Now().UTC(),
	})
}

func (s *KafkaSink) MessageCreated(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	s.publish(ctx, msg.SenderID, Event{
		Type:           "message.created",
		ConversationID: conv.ID.Hex(),
		ActorID:        msg.SenderID,
		RecipientID:    conv.OtherParticipant(msg.SenderID),
		Message:        msg,
		At:             time.Now().UTC(),
	})
}

func (s *KafkaSink) MessagesRead(ctx context.Context, conv *models.Conversation, readerID string) {
	s.publish(ctx, readerID, Event{
		Type:           "messages.read",
		ConversationID: conv.ID.Hex(),
		ActorID:        readerID,
		At:             time.Now().UTC(),
	})
}
