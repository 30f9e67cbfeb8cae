package convai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucamori/intervox/internal/interview"
)

func testConfig() interview.Config {
	return interview.Config{Role: "Backend Engineer", Level: interview.LevelIntermediate, TechStack: []string{"Go"}, QuestionCount: 5}
}

func TestIssueCredentialTokenPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.AgentID != "agent-1" {
			t.Errorf("agentId = %q, want %q", req.AgentID, "agent-1")
		}
		if req.InterviewConfig.Role != "Backend Engineer" {
			t.Errorf("interviewConfig.role = %q", req.InterviewConfig.Role)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"token":      "tok-123",
			"signed_url": "wss://example.test/signed",
		})
	}))
	defer srv.Close()

	c := NewCredentialClient(CredentialClientConfig{Endpoint: srv.URL})
	cred, err := c.IssueCredential(context.Background(), "agent-1", testConfig())
	if err != nil {
		t.Fatalf("IssueCredential() error = %v", err)
	}
	if cred.Token != "tok-123" {
		t.Fatalf("Token = %q, want %q", cred.Token, "tok-123")
	}
	if cred.SignedURL != "" {
		t.Fatalf("SignedURL = %q, want empty when a token is present", cred.SignedURL)
	}
}

func TestIssueCredentialSignedURLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"signed_url": "wss://example.test/signed"})
	}))
	defer srv.Close()

	c := NewCredentialClient(CredentialClientConfig{Endpoint: srv.URL})
	cred, err := c.IssueCredential(context.Background(), "agent-1", testConfig())
	if err != nil {
		t.Fatalf("IssueCredential() error = %v", err)
	}
	if cred.SignedURL != "wss://example.test/signed" {
		t.Fatalf("SignedURL = %q", cred.SignedURL)
	}
}

func TestIssueCredentialFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "upstream error status", status: http.StatusBadGateway, body: `{"error":"upstream unavailable"}`, wantStatus: http.StatusBadGateway},
		{name: "error field on 200", status: http.StatusOK, body: `{"error":"agent not configured"}`, wantStatus: http.StatusOK},
		{name: "neither credential shape", status: http.StatusOK, body: `{}`, wantStatus: http.StatusOK},
		{name: "unparseable body", status: http.StatusOK, body: `not json`, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCredentialClient(CredentialClientConfig{Endpoint: srv.URL})
			_, err := c.IssueCredential(context.Background(), "agent-1", testConfig())
			var credErr *CredentialError
			if !errors.As(err, &credErr) {
				t.Fatalf("IssueCredential() error = %v, want *CredentialError", err)
			}
			if credErr.Status != tt.wantStatus {
				t.Fatalf("Status = %d, want %d", credErr.Status, tt.wantStatus)
			}
		})
	}
}
