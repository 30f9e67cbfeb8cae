package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucamori/intervox/internal/interview"
)

// PostgresStore persists session records in PostgreSQL. Config, transcript
// and feedback are stored as JSONB so the record round-trips unchanged.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			config JSONB NOT NULL,
			transcript JSONB NOT NULL DEFAULT '[]'::jsonb,
			status TEXT NOT NULL DEFAULT 'in_progress',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			feedback JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_created ON interview_sessions (created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, cfg interview.Config) (interview.SessionRecord, error) {
	rec := interview.SessionRecord{
		ID:         uuid.NewString(),
		Config:     cfg,
		Transcript: []interview.TranscriptEntry{},
		Status:     interview.StatusInProgress,
		CreatedAt:  time.Now().UTC(),
	}
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return interview.SessionRecord{}, fmt.Errorf("encode config: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO interview_sessions (id, config, transcript, status, created_at)
		 VALUES ($1, $2, '[]'::jsonb, $3, $4)`,
		rec.ID, cfgJSON, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return interview.SessionRecord{}, fmt.Errorf("create session: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateTranscript(ctx context.Context, id string, transcript []interview.TranscriptEntry) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE interview_sessions SET transcript=$2 WHERE id=$1 AND status <> $3`,
		id, data, interview.StatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status interview.Status
		err := s.pool.QueryRow(ctx, `SELECT status FROM interview_sessions WHERE id=$1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update transcript: %w", err)
		}
		return ErrCompleted
	}
	return nil
}

func (s *PostgresStore) Finalize(ctx context.Context, id string, transcript []interview.TranscriptEntry, durationSeconds int, feedback *interview.Feedback) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	var feedbackJSON []byte
	if feedback != nil {
		feedbackJSON, err = json.Marshal(feedback)
		if err != nil {
			return fmt.Errorf("encode feedback: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE interview_sessions
		 SET transcript=$2, duration_seconds=$3, feedback=$4, status=$5, completed_at=now()
		 WHERE id=$1`,
		id, data, durationSeconds, feedbackJSON, interview.StatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (interview.SessionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, config, transcript, status, duration_seconds, feedback, created_at, completed_at
		 FROM interview_sessions WHERE id=$1`, id)
	rec, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return interview.SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return interview.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]interview.SessionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, config, transcript, status, duration_seconds, feedback, created_at, completed_at
		 FROM interview_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []interview.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Archive(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE interview_sessions SET status=$2 WHERE id=$1`,
		id, interview.StatusArchived,
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSession(row pgx.Row) (interview.SessionRecord, error) {
	var (
		rec            interview.SessionRecord
		configJSON     []byte
		transcriptJSON []byte
		feedbackJSON   []byte
	)
	if err := row.Scan(&rec.ID, &configJSON, &transcriptJSON, &rec.Status, &rec.DurationSeconds, &feedbackJSON, &rec.CreatedAt, &rec.CompletedAt); err != nil {
		return interview.SessionRecord{}, err
	}
	if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
		return interview.SessionRecord{}, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal(transcriptJSON, &rec.Transcript); err != nil {
		return interview.SessionRecord{}, fmt.Errorf("decode transcript: %w", err)
	}
	if len(feedbackJSON) > 0 {
		rec.Feedback = &interview.Feedback{}
		if err := json.Unmarshal(feedbackJSON, rec.Feedback); err != nil {
			return interview.SessionRecord{}, fmt.Errorf("decode feedback: %w", err)
		}
	}
	return rec, nil
}
