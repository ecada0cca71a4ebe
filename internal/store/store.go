// Package store persists archive capture outcomes in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS archive_captures (
	id          UUID PRIMARY KEY,
	url         TEXT NOT NULL,
	provider    TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	archive_url TEXT,
	error       TEXT,
	request_id  TEXT,
	captured_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS archive_captures_url_idx ON archive_captures (url, captured_at DESC);
`

// Capture is one recorded capture attempt.
type Capture struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	Provider   string    `json:"provider"`
	Success    bool      `json:"success"`
	ArchiveURL string    `json:"archive_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Recorder is what the worker needs from a store.
type Recorder interface {
	RecordCapture(ctx context.Context, c Capture) error
}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and makes sure the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("store: database url is empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RecordCapture inserts c, filling ID and CapturedAt when unset.
func (s *Store) RecordCapture(ctx context.Context, c Capture) error {
	c = normalize(c)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO archive_captures (id, url, provider, success, archive_url, error, request_id, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID.String(), c.URL, c.Provider, c.Success, text(c.ArchiveURL), text(c.Error), text(c.RequestID),
		pgtype.Timestamptz{Time: c.CapturedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("record capture: %w", err)
	}
	return nil
}

// RecentCaptures returns the latest attempts for url, newest first.
func (s *Store) RecentCaptures(ctx context.Context, url string, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, provider, success, archive_url, error, request_id, captured_at
		FROM archive_captures WHERE url = $1 ORDER BY captured_at DESC LIMIT $2`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanCapture)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	return out, nil
}

func scanCapture(row pgx.CollectableRow) (Capture, error) {
	var (
		c                          Capture
		archiveURL, msg, requestID pgtype.Text
		at                         pgtype.Timestamptz
	)
	if err := row.Scan(&c.ID, &c.URL, &c.Provider, &c.Success, &archiveURL, &msg, &requestID, &at); err != nil {
		return Capture{}, err
	}
	c.ArchiveURL, c.Error, c.RequestID = archiveURL.String, msg.String, requestID.String
	c.CapturedAt = at.Time
	return c, nil
}

func normalize(c Capture) Capture {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CapturedAt.IsZero() {
		c.CapturedAt = time.Now().UTC()
	}
	return c
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
