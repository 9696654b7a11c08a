// Package activity is the fire-and-forget order event side channel. When
// Kafka brokers are configured events go to a topic; otherwise they are
// logged. Publishing never blocks or fails a placement.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id,omitempty"`
	OrderID   int64     `json:"order_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEvent(eventType string, userID, orderID int64, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		OrderID:   orderID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

type Sink interface {
	Log(event Event)
}

// KafkaSink publishes events to a topic. With no brokers configured it
// degrades to logging only.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	sink := &KafkaSink{logger: logger}
	if len(brokers) > 0 {
		sink.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return sink
}

func (s *KafkaSink) Log(event Event) {
	go func() {
		if s.writer == nil {
			s.logger.Info("activity",
				zap.String("event_id", event.ID),
				zap.String("type", event.Type),
				zap.Int64("user_id", event.UserID),
				zap.Int64("order_id", event.OrderID),
				zap.String("message", event.Message))
			return
		}

		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Warn("activity marshal failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(event.ID),
			Value: payload,
		}); err != nil {
			s.logger.Warn("activity publish failed", zap.Error(err))
		}
	}()
}

func (s *KafkaSink) Close() error {
	if s.writer != nil {
		return s.writer.Close()
	}
	return nil
}
