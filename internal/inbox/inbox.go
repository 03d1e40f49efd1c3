// Package inbox stores each user's recent notifications.
package inbox

import (
	"context"
	"sync"

	"github.com/example/airport-shuttle/internal/models"
)

// DefaultCapacity bounds how many notifications a user keeps.
const DefaultCapacity = 100

type Inbox interface {
	Push(ctx context.Context, n models.Notification) error
	// List returns newest first.
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

// Dispatcher lets an inbox receive notifications directly when no event
// stream sits in between.
type Dispatcher struct {
	Inbox Inbox
}

func (d Dispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	return d.Inbox.Push(ctx, n)
}

func Unread(ns []models.Notification) int {
	c := 0
	for _, n := range ns {
		if !n.Read {
			c++
		}
	}
	return c
}

type MemoryInbox struct {
	mu       sync.Mutex
	capacity int
	items    map[string][]models.Notification // newest first
}

func NewMemoryInbox(capacity int) *MemoryInbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryInbox{capacity: capacity, items: make(map[string][]models.Notification)}
}

func (m *MemoryInbox) Push(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]models.Notification{n}, m.items[n.UserID]...)
	if len(list) > m.capacity {
		list = list[:m.capacity]
	}
	m.items[n.UserID] = list
	return nil
}

func (m *MemoryInbox) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.items[userID]
	if limit > 0 && len(src) > limit {
		src = src[:limit]
	}
	return append([]models.Notification{}, src...), nil
}

func (m *MemoryInbox) MarkRead(ctx context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items[userID] {
		if m.items[userID][i].ID == notificationID {
			m.items[userID][i].Read = true
			return nil
		}
	}
	return models.ErrNotFound
}
