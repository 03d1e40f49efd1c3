package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/airport-shuttle/internal/models"
)

// AMQPDispatcher publishes notifications to a topic exchange, routed as
// notification.<type>, for the email and push workers.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

// DialAMQP connects with exponential backoff and declares the exchange once.
func DialAMQP(url, exchange string, attempts int, logger *slog.Logger) (*AMQPDispatcher, error) {
	var conn *amqp.Connection
	var err error
	delay := time.Second
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("amqp connect failed", "attempt", i, "err", err)
		if i < attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", attempts, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, exchange: exchange}, nil
}

func RoutingKey(t models.NotificationType) string { return "notification." + string(t) }

func (a *AMQPDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	err = a.ch.PublishWithContext(ctx, a.exchange, RoutingKey(n.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    n.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (a *AMQPDispatcher) Close() error {
	if a.ch != nil {
		_ = a.ch.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
