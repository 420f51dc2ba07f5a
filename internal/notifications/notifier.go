package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// JobEvent is posted when a scrape job reaches a terminal state.
type JobEvent struct {
	Event          string `json:"event"`
	JobID          int64  `json:"jobId"`
	Status         string `json:"status"`
	ProcessedCount int    `json:"processedCount"`
	SuccessCount   int    `json:"successCount"`
	FailedCount    int    `json:"failedCount"`
	EpisodesTagged int    `json:"episodesTagged"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event JobEvent) error
}

type NoopNotifier struct{}

func (n NoopNotifier) Notify(_ context.Context, _ JobEvent) error {
	return nil
}

type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(webhookURL string) (*WebhookNotifier, error) {
	trimmed := strings.TrimSpace(webhookURL)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	return &WebhookNotifier{
		url: trimmed,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, event JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", res.StatusCode)
	}

	return nil
}
