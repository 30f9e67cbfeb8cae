package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucamori/intervox/internal/interview"
)

func storeConfig() interview.Config {
	return interview.Config{Role: "SRE", Level: interview.LevelBeginner, TechStack: []string{"Go", "Kubernetes"}, QuestionCount: 4}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	rec, err := s.CreateSession(ctx, storeConfig())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("CreateSession() returned empty id")
	}
	if rec.Status != interview.StatusInProgress {
		t.Fatalf("Status = %q, want %q", rec.Status, interview.StatusInProgress)
	}

	transcript := []interview.TranscriptEntry{
		{Speaker: interview.SpeakerAI, Text: "First question.", Timestamp: time.Now().UTC()},
		{Speaker: interview.SpeakerUser, Text: "First answer.", Timestamp: time.Now().UTC()},
	}
	if err := s.UpdateTranscript(ctx, rec.ID, transcript); err != nil {
		t.Fatalf("UpdateTranscript() error = %v", err)
	}

	got, err := s.GetSession(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(got.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(got.Transcript))
	}

	fb := &interview.Feedback{OverallScore: 71, TechnicalScore: 70, CommunicationScore: 72, ProblemSolvingScore: 72}
	if err := s.Finalize(ctx, rec.ID, transcript, 540, fb); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	got, err = s.GetSession(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetSession() after finalize error = %v", err)
	}
	if got.Status != interview.StatusCompleted {
		t.Fatalf("Status = %q, want %q", got.Status, interview.StatusCompleted)
	}
	if got.DurationSeconds != 540 {
		t.Fatalf("DurationSeconds = %d, want 540", got.DurationSeconds)
	}
	if got.Feedback == nil || got.Feedback.OverallScore != 71 {
		t.Fatalf("Feedback = %+v", got.Feedback)
	}
	if got.CompletedAt == nil {
		t.Fatalf("CompletedAt = nil after finalize")
	}
}

func TestUpdateTranscriptRejectsCompleted(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	rec, err := s.CreateSession(ctx, storeConfig())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := s.Finalize(ctx, rec.ID, nil, 10, nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	err = s.UpdateTranscript(ctx, rec.ID, []interview.TranscriptEntry{{Speaker: interview.SpeakerUser, Text: "late"}})
	if !errors.Is(err, ErrCompleted) {
		t.Fatalf("UpdateTranscript() error = %v, want ErrCompleted", err)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession() error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateTranscript(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateTranscript() error = %v, want ErrNotFound", err)
	}
	if err := s.Finalize(ctx, "missing", nil, 0, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Finalize() error = %v, want ErrNotFound", err)
	}
	if err := s.Archive(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Archive() error = %v, want ErrNotFound", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first, _ := s.CreateSession(ctx, storeConfig())
	// Force distinct creation times.
	rec := s.sessions[first.ID]
	rec.CreatedAt = rec.CreatedAt.Add(-time.Minute)
	s.sessions[first.ID] = rec

	second, _ := s.CreateSession(ctx, storeConfig())

	list, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListSessions() length = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("order = [%s %s], want newest first", list[0].ID, list[1].ID)
	}
}

func TestArchiveMarksStatus(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	rec, _ := s.CreateSession(ctx, storeConfig())
	if err := s.Archive(ctx, rec.ID); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	got, err := s.GetSession(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Status != interview.StatusArchived {
		t.Fatalf("Status = %q, want %q", got.Status, interview.StatusArchived)
	}
}
