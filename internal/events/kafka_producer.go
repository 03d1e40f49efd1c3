// Package events publishes trip events to Kafka for out-of-process consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/airport-shuttle/internal/models"
)

// TripEvent carries one notification for one recipient.
type TripEvent struct {
	ID           string                  `json:"id"`
	TripID       string                  `json:"trip_id"`
	Type         models.NotificationType `json:"type"`
	Notification models.Notification     `json:"notification"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

// Key partitions events per recipient so a user's inbox sees them in order.
func (e TripEvent) Key() string { return e.Notification.UserID }

func Decode(b []byte) (TripEvent, error) {
	var e TripEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return TripEvent{}, err
	}
	if e.Notification.UserID == "" {
		return TripEvent{}, fmt.Errorf("event %q has no recipient", e.ID)
	}
	return e, nil
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w}
}

func (k *KafkaProducer) Publish(ctx context.Context, e TripEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.Key()), Value: b}); err != nil {
		return fmt.Errorf("failed to write trip event: %w", err)
	}
	return nil
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
