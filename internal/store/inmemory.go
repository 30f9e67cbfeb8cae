package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucamori/intervox/internal/interview"
)

// InMemoryStore keeps session records in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]interview.SessionRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]interview.SessionRecord)}
}

func (s *InMemoryStore) CreateSession(_ context.Context, cfg interview.Config) (interview.SessionRecord, error) {
	rec := interview.SessionRecord{
		ID:         uuid.NewString(),
		Config:     cfg,
		Transcript: []interview.TranscriptEntry{},
		Status:     interview.StatusInProgress,
		CreatedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.sessions[rec.ID] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *InMemoryStore) UpdateTranscript(_ context.Context, id string, transcript []interview.TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status == interview.StatusCompleted {
		return ErrCompleted
	}
	rec.Transcript = cloneTranscript(transcript)
	s.sessions[id] = rec
	return nil
}

func (s *InMemoryStore) Finalize(_ context.Context, id string, transcript []interview.TranscriptEntry, durationSeconds int, feedback *interview.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	rec.Transcript = cloneTranscript(transcript)
	rec.DurationSeconds = durationSeconds
	rec.Feedback = feedback
	rec.Status = interview.StatusCompleted
	rec.CompletedAt = &now
	s.sessions[id] = rec
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (interview.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return interview.SessionRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) ListSessions(_ context.Context) ([]interview.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]interview.SessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Archive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = interview.StatusArchived
	s.sessions[id] = rec
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

func cloneTranscript(entries []interview.TranscriptEntry) []interview.TranscriptEntry {
	out := make([]interview.TranscriptEntry, len(entries))
	copy(out, entries)
	return out
}
