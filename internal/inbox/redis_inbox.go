package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/airport-shuttle/internal/models"
)

// RedisInbox keeps one capped list per user, newest at the head.
type RedisInbox struct {
	client   *redis.Client
	capacity int64
	ttl      time.Duration
}

func NewRedisInbox(client *redis.Client, capacity int, ttl time.Duration) *RedisInbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisInbox{client: client, capacity: int64(capacity), ttl: ttl}
}

func key(userID string) string { return "inbox:" + userID }

func (r *RedisInbox) Push(ctx context.Context, n models.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	k := key(n.UserID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, k, b)
	pipe.LTrim(ctx, k, 0, r.capacity-1)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisInbox) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := r.client.LRange(ctx, key(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(raw))
	for _, s := range raw {
		var n models.Notification
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			return nil, fmt.Errorf("corrupt inbox entry for %s: %w", userID, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead rewrites the entry in place. A concurrent push shifts indexes, so
// the update is guarded by WATCH and retried once.
func (r *RedisInbox) MarkRead(ctx context.Context, userID, notificationID string) error {
	k := key(userID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, k, 0, -1).Result()
		if err != nil {
			return err
		}
		for i, s := range raw {
			var n models.Notification
			if err := json.Unmarshal([]byte(s), &n); err != nil || n.ID != notificationID {
				continue
			}
			if n.Read {
				return nil
			}
			n.Read = true
			b, err := json.Marshal(n)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.LSet(ctx, k, int64(i), b)
				return nil
			})
			return err
		}
		return models.ErrNotFound
	}
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = r.client.Watch(ctx, txf, k)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return err
}
