package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/airport-shuttle/internal/models"
)

// PushDispatcher posts FCM-style JSON messages to a push provider endpoint.
type PushDispatcher struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewPushDispatcher(endpoint, key string) *PushDispatcher {
	return &PushDispatcher{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

type pushMessage struct {
	Message struct {
		Topic        string            `json:"topic"`
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data"`
	} `json:"message"`
}

func (p *PushDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	var msg pushMessage
	msg.Message.Topic = "user-" + n.UserID
	msg.Message.Notification = map[string]string{"title": n.Title, "body": n.Message}
	msg.Message.Data = map[string]string{"notification_id": n.ID, "trip_id": n.TripID, "type": string(n.Type)}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned %s", resp.Status)
	}
	return nil
}
