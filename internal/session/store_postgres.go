package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
)

const dbTimeout = 5 * time.Second

// PostgresProgressStore is a PostgreSQL-backed ProgressStore. One row per
// (terminal, student); curriculum, history and preferences live in JSONB.
type PostgresProgressStore struct {
	pool *pgxpool.Pool
}

// Schema is the DDL for the progress tables, applied by deployment tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS student_progress (
    terminal_id   TEXT        NOT NULL,
    student_name  TEXT        NOT NULL,
    grade         TEXT        NOT NULL,
    curriculum    JSONB       NOT NULL,
    history       JSONB       NOT NULL,
    preferences   JSONB       NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (terminal_id, student_name)
);

CREATE TABLE IF NOT EXISTS session_events (
    id            BIGSERIAL PRIMARY KEY,
    terminal_id   TEXT        NOT NULL,
    student_name  TEXT        NOT NULL,
    event_type    TEXT        NOT NULL,
    data          JSONB       NOT NULL DEFAULT '{}'::jsonb,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// NewPostgresProgressStore creates a Postgres-backed progress store.
func NewPostgresProgressStore(pool *pgxpool.Pool) (*PostgresProgressStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresProgressStore{pool: pool}, nil
}

// EnsureSchema creates the progress tables when they do not exist yet.
func (s *PostgresProgressStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresProgressStore) Load(ctx context.Context, terminalID, studentName string) (*StudentProgress, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var grade string
	var curriculumJSON, historyJSON, preferencesJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT grade, curriculum, history, preferences
		 FROM student_progress
		 WHERE terminal_id = $1 AND student_name = $2`,
		terminalID, studentName,
	).Scan(&grade, &curriculumJSON, &historyJSON, &preferencesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load progress: %w", err)
	}

	progress := &StudentProgress{}
	progress.Grade = curriculum.GradeLevel(grade)
	if err := json.Unmarshal(curriculumJSON, &progress.Curriculum); err != nil {
		return nil, false, fmt.Errorf("decode curriculum: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &progress.History); err != nil {
		return nil, false, fmt.Errorf("decode history: %w", err)
	}
	if err := json.Unmarshal(preferencesJSON, &progress.Preferences); err != nil {
		return nil, false, fmt.Errorf("decode preferences: %w", err)
	}
	return progress, true, nil
}

func (s *PostgresProgressStore) Save(ctx context.Context, terminalID, studentName string, progress *StudentProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if terminalID == "" || studentName == "" {
		return fmt.Errorf("terminal_id and student_name are required")
	}

	curriculumJSON, err := json.Marshal(progress.Curriculum)
	if err != nil {
		return fmt.Errorf("encode curriculum: %w", err)
	}
	historyJSON, err := json.Marshal(progress.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	preferencesJSON, err := json.Marshal(progress.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO student_progress (terminal_id, student_name, grade, curriculum, history, preferences, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, NOW())
		 ON CONFLICT (terminal_id, student_name) DO UPDATE
		 SET grade = EXCLUDED.grade,
		     curriculum = EXCLUDED.curriculum,
		     history = EXCLUDED.history,
		     preferences = EXCLUDED.preferences,
		     updated_at = NOW()`,
		terminalID, studentName, string(progress.Grade),
		string(curriculumJSON), string(historyJSON), string(preferencesJSON),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// All returns every progress record for a terminal, for the admin report.
func (s *PostgresProgressStore) All(ctx context.Context, terminalID string) (map[string]*StudentProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT student_name, grade, curriculum, history, preferences
		 FROM student_progress
		 WHERE terminal_id = $1
		 ORDER BY student_name`,
		terminalID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*StudentProgress)
	for rows.Next() {
		var name, grade string
		var curriculumJSON, historyJSON, preferencesJSON []byte
		if err := rows.Scan(&name, &grade, &curriculumJSON, &historyJSON, &preferencesJSON); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		progress := &StudentProgress{Grade: curriculum.GradeLevel(grade)}
		if err := json.Unmarshal(curriculumJSON, &progress.Curriculum); err != nil {
			return nil, fmt.Errorf("decode curriculum: %w", err)
		}
		if err := json.Unmarshal(historyJSON, &progress.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		if err := json.Unmarshal(preferencesJSON, &progress.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
		out[name] = progress
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}
