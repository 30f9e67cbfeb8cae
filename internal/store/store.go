// Package store persists interview session records. A postgres-backed store
// is used when configured; the in-memory store backs tests and single-process
// runs without a database.
package store

import (
	"context"
	"errors"

	"github.com/lucamori/intervox/internal/interview"
)

var (
	// ErrNotFound reports a session id with no stored record.
	ErrNotFound = errors.New("session not found")

	// ErrCompleted rejects transcript writes to a finalized session.
	ErrCompleted = errors.New("session already completed")
)

// Store persists session records across the create, checkpoint and finalize
// lifecycle. Transcript updates replace the stored array wholesale; the live
// log is the source of truth and the store only mirrors it.
type Store interface {
	CreateSession(ctx context.Context, cfg interview.Config) (interview.SessionRecord, error)
	UpdateTranscript(ctx context.Context, id string, transcript []interview.TranscriptEntry) error
	Finalize(ctx context.Context, id string, transcript []interview.TranscriptEntry, durationSeconds int, feedback *interview.Feedback) error
	GetSession(ctx context.Context, id string) (interview.SessionRecord, error)
	ListSessions(ctx context.Context) ([]interview.SessionRecord, error)
	Archive(ctx context.Context, id string) error
	Close() error
}
