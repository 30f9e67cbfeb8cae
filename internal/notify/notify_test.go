package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucamori/intervox/internal/interview"
)

func completedRecord() interview.SessionRecord {
	return interview.SessionRecord{
		ID: "sess-1",
		Config: interview.Config{
			Role: "Backend Engineer", Level: interview.LevelIntermediate,
			TechStack: []string{"Go"}, QuestionCount: 5,
		},
		Status:          interview.StatusCompleted,
		DurationSeconds: 420,
		Feedback:        &interview.Feedback{OverallScore: 81},
		CreatedAt:       time.Now().UTC(),
	}
}

func TestSessionCompletedPostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailNotifierConfig{Endpoint: srv.URL})
	if err := n.SessionCompleted(context.Background(), completedRecord()); err != nil {
		t.Fatalf("SessionCompleted() error = %v", err)
	}
	if got["sessionId"] != "sess-1" {
		t.Fatalf("sessionId = %v", got["sessionId"])
	}
	if got["role"] != "Backend Engineer" {
		t.Fatalf("role = %v", got["role"])
	}
	if got["durationSeconds"] != float64(420) {
		t.Fatalf("durationSeconds = %v", got["durationSeconds"])
	}
	if got["feedback"] == nil {
		t.Fatalf("feedback missing from payload")
	}
}

func TestSessionCompletedSurfacesFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailNotifierConfig{Endpoint: srv.URL})
	if err := n.SessionCompleted(context.Background(), completedRecord()); err == nil {
		t.Fatalf("SessionCompleted() error = nil, want failure for status 502")
	}
}
