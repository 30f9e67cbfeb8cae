// Package analysis scores a finished interview transcript through the
// evaluation endpoint and classifies its failure modes so callers can show
// accurate guidance instead of a generic error.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lucamori/intervox/internal/interview"
)

const defaultAnalyzeTimeout = 60 * time.Second

// Kind buckets analysis failures by what the user can do about them.
type Kind string

const (
	KindRateLimited    Kind = "rate_limited"
	KindQuotaExhausted Kind = "quota_exhausted"
	KindGeneric        Kind = "generic"
)

// AnalysisError reports a failed or unusable evaluation. The session still
// completes when analysis fails; only the feedback is missing.
type AnalysisError struct {
	Kind   Kind
	Status int
	Detail string
}

func (e *AnalysisError) Error() string {
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("analysis failed (%s, status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("analysis failed (%s, status %d): %s", e.Kind, e.Status, e.Detail)
}

// ClassifyStatus maps an evaluation endpoint status to a failure kind.
func ClassifyStatus(status int) Kind {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusPaymentRequired:
		return KindQuotaExhausted
	default:
		return KindGeneric
	}
}

type ClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type Client struct {
	cfg  ClientConfig
	http *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAnalyzeTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type analyzeRequest struct {
	Transcript []interview.TranscriptEntry `json:"transcript"`
	Role       string                      `json:"role"`
	Level      interview.Level             `json:"level"`
	TechStack  []string                    `json:"techStack"`
}

type analyzeResponse struct {
	Feedback *interview.Feedback `json:"feedback"`
	Error    string              `json:"error"`
}

// Analyze submits the full transcript for evaluation and returns structured
// feedback. It is called at most once per session.
func (c *Client) Analyze(ctx context.Context, transcript []interview.TranscriptEntry, cfg interview.Config) (*interview.Feedback, error) {
	body, err := json.Marshal(analyzeRequest{
		Transcript: transcript,
		Role:       cfg.Role,
		Level:      cfg.Level,
		TechStack:  cfg.TechStack,
	})
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &AnalysisError{Kind: KindGeneric, Detail: err.Error()}
	}
	defer resp.Body.Close()

	var parsed analyzeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode != http.StatusOK {
		detail := parsed.Error
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return nil, &AnalysisError{Kind: ClassifyStatus(resp.StatusCode), Status: resp.StatusCode, Detail: detail}
	}
	if decodeErr != nil {
		return nil, &AnalysisError{Kind: KindGeneric, Status: resp.StatusCode, Detail: "unparseable evaluation response"}
	}
	if parsed.Error != "" {
		return nil, &AnalysisError{Kind: KindGeneric, Status: resp.StatusCode, Detail: parsed.Error}
	}
	if parsed.Feedback == nil {
		return nil, &AnalysisError{Kind: KindGeneric, Status: resp.StatusCode, Detail: "evaluation response carried no feedback"}
	}
	return parsed.Feedback, nil
}
