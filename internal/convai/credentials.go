// Package convai talks to the conversational-agent platform: issuing
// short-lived connection credentials over HTTP and carrying the realtime
// conversation over a websocket.
package convai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lucamori/intervox/internal/channel"
	"github.com/lucamori/intervox/internal/interview"
)

const defaultCredentialTimeout = 10 * time.Second

// CredentialError reports a failed or malformed credential issuance.
type CredentialError struct {
	Status int
	Detail string
}

func (e *CredentialError) Error() string {
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("credential request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("credential request failed (status %d): %s", e.Status, e.Detail)
}

type CredentialClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// CredentialClient requests conversation credentials from the issuing
// endpoint. A well-formed response carries a token, a signed URL, or both;
// when both are present the token wins.
type CredentialClient struct {
	cfg  CredentialClientConfig
	http *http.Client
}

func NewCredentialClient(cfg CredentialClientConfig) *CredentialClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCredentialTimeout
	}
	return &CredentialClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type credentialRequest struct {
	AgentID         string           `json:"agentId"`
	InterviewConfig interview.Config `json:"interviewConfig"`
}

type credentialResponse struct {
	Token     string `json:"token"`
	SignedURL string `json:"signed_url"`
	Error     string `json:"error"`
}

func (c *CredentialClient) IssueCredential(ctx context.Context, agentID string, cfg interview.Config) (channel.Credential, error) {
	body, err := json.Marshal(credentialRequest{AgentID: agentID, InterviewConfig: cfg})
	if err != nil {
		return channel.Credential{}, fmt.Errorf("encode credential request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return channel.Credential{}, fmt.Errorf("build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return channel.Credential{}, fmt.Errorf("credential request: %w", err)
	}
	defer resp.Body.Close()

	var parsed credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return channel.Credential{}, &CredentialError{Status: resp.StatusCode, Detail: "unparseable response body"}
	}
	if resp.StatusCode != http.StatusOK {
		detail := parsed.Error
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return channel.Credential{}, &CredentialError{Status: resp.StatusCode, Detail: detail}
	}
	if parsed.Error != "" {
		return channel.Credential{}, &CredentialError{Status: resp.StatusCode, Detail: parsed.Error}
	}

	token := strings.TrimSpace(parsed.Token)
	signed := strings.TrimSpace(parsed.SignedURL)
	if token != "" {
		return channel.Credential{Token: token}, nil
	}
	if signed != "" {
		return channel.Credential{SignedURL: signed}, nil
	}
	return channel.Credential{}, &CredentialError{Status: resp.StatusCode, Detail: "response carried neither token nor signed_url"}
}
