// Package questions asks the planning endpoint for an interview question set
// matching the configured role, level and stack. Planning is advisory; the
// agent improvises when no plan is available.
package questions

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

const defaultPlanTimeout = 30 * time.Second

type PlannerConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type Planner struct {
	cfg  PlannerConfig
	http *http.Client
}

func NewPlanner(cfg PlannerConfig) *Planner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPlanTimeout
	}
	return &Planner{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type planRequest struct {
	Role          string          `json:"role"`
	Level         interview.Level `json:"level"`
	TechStack     []string        `json:"techStack"`
	QuestionCount int             `json:"questionCount"`
}

type planResponse struct {
	Questions []string `json:"questions"`
	Error     string   `json:"error"`
}

// Plan returns the generated question list. Failures are returned as plain
// errors for the caller to log and ignore.
func (p *Planner) Plan(ctx context.Context, cfg interview.Config) ([]string, error) {
	body, err := json.Marshal(planRequest{
		Role:          cfg.Role,
		Level:         cfg.Level,
		TechStack:     cfg.TechStack,
		QuestionCount: cfg.QuestionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("encode plan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build plan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plan request: %w", err)
	}
	defer resp.Body.Close()

	var parsed planResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode plan response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != "" {
		detail := parsed.Error
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("plan request failed (status %d): %s", resp.StatusCode, detail)
	}

	out := make([]string, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("plan response carried no questions")
	}
	return out, nil
}
