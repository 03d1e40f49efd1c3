package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/airport-shuttle/internal/events"
	"github.com/example/airport-shuttle/internal/models"
)

type EventPublisher interface {
	Publish(ctx context.Context, e events.TripEvent) error
}

// KafkaDispatcher hands notifications to the event stream; cmd/consumer files
// them into each user's inbox.
type KafkaDispatcher struct {
	Publisher EventPublisher
}

func (k *KafkaDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	return k.Publisher.Publish(ctx, events.TripEvent{
		ID:           uuid.NewString(),
		TripID:       n.TripID,
		Type:         n.Type,
		Notification: n,
		OccurredAt:   n.CreatedAt,
	})
}
