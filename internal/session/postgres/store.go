// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides the PostgreSQL session store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/session"
)

type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements session.Store using the http_sessions table.
type Store struct {
	pool poolIface
}

// NewStore creates a new Store.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Create stores a new session record.
func (s *Store) Create(ctx context.Context, r *session.Record) error {
	data, err := encodeData(r.Data)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO http_sessions (id, token_hash, data, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		r.ID.String(),
		r.TokenHash,
		data,
		r.ExpiresAt,
		r.CreatedAt,
		r.LastSeenAt,
	)
	if err != nil {
		return oops.With("operation", "insert http_session").With("id", r.ID.String()).Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session record by token hash.
func (s *Store) GetByTokenHash(ctx context.Context, hash string) (*session.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token_hash, data, expires_at, created_at, last_seen_at
		FROM http_sessions
		WHERE token_hash = $1
	`, hash)

	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get session by token hash").Wrap(err)
	}
	return r, nil
}

// Update replaces the data, expiry and last-seen time of a record.
func (s *Store) Update(ctx context.Context, r *session.Record) error {
	data, err := encodeData(r.Data)
	if err != nil {
		return err
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE http_sessions SET data = $2, expires_at = $3, last_seen_at = $4
		WHERE id = $1
	`, r.ID.String(), data, r.ExpiresAt, r.LastSeenAt)
	if err != nil {
		return oops.With("operation", "update http_session").With("id", r.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", r.ID.String()).Wrap(session.ErrNotFound)
	}
	return nil
}

// Delete removes a session record.
func (s *Store) Delete(ctx context.Context, id ulid.ULID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM http_sessions WHERE id = $1`, id.String()); err != nil {
		return oops.With("operation", "delete http_session").With("id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteExpired removes every record expired at now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM http_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.With("operation", "delete expired http_sessions").Wrap(err)
	}
	return result.RowsAffected(), nil
}

func encodeData(data map[string]json.RawMessage) ([]byte, error) {
	if data == nil {
		data = map[string]json.RawMessage{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, oops.With("operation", "marshal session data").Wrap(err)
	}
	return b, nil
}

// scanRecord scans a single row into a Record.
// Callers are responsible for handling pgx.ErrNoRows.
func scanRecord(row pgx.Row) (*session.Record, error) {
	var (
		idStr string
		data  []byte
		r     session.Record
	)
	if err := row.Scan(&idStr, &r.TokenHash, &data, &r.ExpiresAt, &r.CreatedAt, &r.LastSeenAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse session id").With("id", idStr).Wrap(err)
	}
	r.ID = id

	r.Data = make(map[string]json.RawMessage)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.Data); err != nil {
			return nil, oops.With("operation", "unmarshal session data").Wrap(err)
		}
	}
	return &r, nil
}

// Compile-time interface check.
var _ session.Store = (*Store)(nil)
