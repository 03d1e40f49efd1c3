package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/airport-shuttle/internal/events"
	"github.com/example/airport-shuttle/internal/logging"
	"github.com/example/airport-shuttle/internal/models"
)

// fakePusher fails the first fail calls to Push.
type fakePusher struct {
	mu    sync.Mutex
	fail  int
	calls int
	got   []models.Notification
}

func (f *fakePusher) Push(ctx context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fail {
		return errors.New("redis down")
	}
	f.got = append(f.got, n)
	return nil
}

func TestPushWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakePusher{fail: 2}
	start := time.Now()
	if err := pushWithRetry(context.Background(), f, models.Notification{ID: "n1", UserID: "u1"}, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 || len(f.got) != 1 {
		t.Fatalf("expected 3 calls and one stored notification, got calls=%d stored=%d", f.calls, len(f.got))
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("expected backoff between attempts")
	}
}

func TestPushWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakePusher{fail: 5}
	if err := pushWithRetry(context.Background(), f, models.Notification{ID: "n1", UserID: "u1"}, 3, time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
}

func TestPushWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakePusher{fail: 5}
	err := pushWithRetry(ctx, f, models.Notification{ID: "n1", UserID: "u1"}, 3, time.Second)
	if !errors.Is(err, context.Canceled) || f.calls != 1 {
		t.Fatalf("expected a single attempt and context.Canceled, got calls=%d err=%v", f.calls, err)
	}
}

// sliceReader serves messages then blocks until ctx is done.
type sliceReader struct {
	msgs []kafka.Message
}

func (s *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := s.msgs[0]
	s.msgs = s.msgs[1:]
	return m, nil
}

func TestConsumeStoresValidEventsAndSkipsInvalid(t *testing.T) {
	ev := events.TripEvent{
		ID:           "e1",
		TripID:       "t1",
		Type:         models.NotifyParticipantJoined,
		Notification: models.Notification{ID: "n1", UserID: "u1", TripID: "t1", Type: models.NotifyParticipantJoined},
	}
	good, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	r := &sliceReader{msgs: []kafka.Message{{Value: []byte("not json")}, {Value: good}}}
	f := &fakePusher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consume(ctx, r, f, logging.Discard())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		f.mu.Lock()
		n := len(f.got)
		f.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("event was not stored")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	if f.got[0].ID != "n1" || f.got[0].UserID != "u1" {
		t.Fatalf("unexpected notification %+v", f.got[0])
	}
}
