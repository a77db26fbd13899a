package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dropsync/internal/config"
	"dropsync/internal/logger"
)

// Notification is the JSON document posted to the operator webhook.
// The shape works as-is for Slack-compatible receivers ("text") while
// keeping the raw event data for anything richer.
type Notification struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text"`
	ProductID string                 `json:"product_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type Dispatcher struct {
	webhookURL string
	httpClient *http.Client
	logger     *logger.Logger
}

func New(cfg *config.Config, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		webhookURL: cfg.NotifyWebhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send posts one notification. Without a configured webhook URL the
// notification is logged instead, so the worker runs fine unconfigured.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	if d.webhookURL == "" {
		d.logger.Info("Notification (no webhook configured): %s", n.Text)
		return nil
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
