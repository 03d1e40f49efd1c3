package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/airport-shuttle/internal/auth"
)

const processing = "PROCESSING"

// StoredResponse is the replayable outcome of a state-changing request.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type IdempotencyStore interface {
	// Reserve claims key; false means another request holds or completed it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Load returns the stored response, or nil while the first request is still running.
	Load(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotency struct {
	client *redis.Client
}

func NewRedisIdempotency(c *redis.Client) *RedisIdempotency { return &RedisIdempotency{client: c} }

func (r *RedisIdempotency) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, processing, ttl).Result()
}

func (r *RedisIdempotency) Load(ctx context.Context, key string) (*StoredResponse, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || val == processing {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp StoredResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *RedisIdempotency) Save(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, b, ttl).Err()
}

func (r *RedisIdempotency) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// lockTTL bounds how long a crashed request can block its key.
const lockTTL = 30 * time.Second

// idempotencyMiddleware replays the first response for a repeated
// Idempotency-Key on POST requests. Keys are scoped per user and path.
func (s *Server) idempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		idemKey := "idempotency:" + auth.UserID(ctx) + ":" + r.URL.Path + ":" + key

		acquired, err := s.Idempotency.Reserve(ctx, idemKey, lockTTL)
		if err != nil {
			s.logger.Warn("idempotency store unavailable", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !acquired {
			stored, err := s.Idempotency.Load(ctx, idemKey)
			if err != nil || stored == nil {
				writeJSON(w, http.StatusConflict, errorBody{Error: "request already in progress"})
				return
			}
			w.Header().Set("X-Idempotency-Hit", "true")
			if stored.ContentType != "" {
				w.Header().Set("Content-Type", stored.ContentType)
			}
			w.WriteHeader(stored.Status)
			w.Write(stored.Body)
			return
		}

		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, r)

		// server errors are not final, let the client retry
		if cw.status >= 500 {
			_ = s.Idempotency.Release(context.WithoutCancel(ctx), idemKey)
			return
		}
		ttl := s.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		resp := StoredResponse{Status: cw.status, ContentType: cw.Header().Get("Content-Type"), Body: cw.buf.Bytes()}
		if err := s.Idempotency.Save(context.WithoutCancel(ctx), idemKey, resp, ttl); err != nil {
			s.logger.Warn("failed to store idempotent response", "err", err)
		}
	})
}
