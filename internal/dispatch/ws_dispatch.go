package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/observability"
)

const writeWait = 5 * time.Second

// WSSession represents a connected user session
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(n)
}

// WSRegistry holds one live session per user.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

// Add registers conn for userID, closing any session it replaces.
func (r *WSRegistry) Add(userID string, conn *websocket.Conn) {
	r.mu.Lock()
	old, replaced := r.sessions[userID]
	r.sessions[userID] = &WSSession{conn: conn}
	r.mu.Unlock()
	if replaced {
		_ = old.conn.Close()
		return
	}
	observability.WSSessions.Inc()
}

// Remove drops the session only if it still belongs to conn.
func (r *WSRegistry) Remove(userID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok && s.conn == conn {
		delete(r.sessions, userID)
		observability.WSSessions.Dec()
	}
}

func (r *WSRegistry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

func (r *WSRegistry) Dispatch(ctx context.Context, n models.Notification) error {
	r.mu.RLock()
	s, ok := r.sessions[n.UserID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.Send(n)
}

var ErrNoSession = errors.New("no ws session")
