// Package notify sends the post-interview completion email through the
// notification endpoint. Delivery is best effort and never blocks finalize.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lucamori/intervox/internal/interview"
)

const defaultNotifyTimeout = 15 * time.Second

// Notifier announces a completed interview session.
type Notifier interface {
	SessionCompleted(ctx context.Context, rec interview.SessionRecord) error
}

type EmailNotifierConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type EmailNotifier struct {
	cfg  EmailNotifierConfig
	http *http.Client
}

func NewEmailNotifier(cfg EmailNotifierConfig) *EmailNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNotifyTimeout
	}
	return &EmailNotifier{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type completionPayload struct {
	SessionID       string              `json:"sessionId"`
	Role            string              `json:"role"`
	Level           interview.Level     `json:"level"`
	DurationSeconds int                 `json:"durationSeconds"`
	Feedback        *interview.Feedback `json:"feedback,omitempty"`
}

func (n *EmailNotifier) SessionCompleted(ctx context.Context, rec interview.SessionRecord) error {
	body, err := json.Marshal(completionPayload{
		SessionID:       rec.ID,
		Role:            rec.Config.Role,
		Level:           rec.Config.Level,
		DurationSeconds: rec.DurationSeconds,
		Feedback:        rec.Feedback,
	})
	if err != nil {
		return fmt.Errorf("encode completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("completion request failed (status %d)", resp.StatusCode)
	}
	return nil
}
