package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"outreach_backend/platform/config"
)

// Sink delivers a rendered notification message somewhere an SDR will
// see it.
type Sink interface {
	Deliver(ctx context.Context, message string) error
}

// WebhookSink posts messages to a Slack-compatible incoming webhook.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(cfg config.NotificationConfig) *WebhookSink {
	return &WebhookSink{
		url:    cfg.GetNotificationWebhookURL(),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Deliver(ctx context.Context, message string) error {
	if s == nil || s.url == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification sink returned %d", resp.StatusCode)
	}
	return nil
}
