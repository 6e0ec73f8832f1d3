// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/session"
)

var sessionColumns = []string{"id", "token_hash", "data", "expires_at", "created_at", "last_seen_at"}

func TestStore_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &session.Record{
		ID:         ulid.Make(),
		TokenHash:  "hash",
		Data:       map[string]json.RawMessage{"loginState": json.RawMessage(`{"id":1}`)},
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
		LastSeenAt: now,
	}

	mock.ExpectExec(`INSERT INTO http_sessions`).
		WithArgs(r.ID.String(), "hash", []byte(`{"loginState":{"id":1}}`), r.ExpiresAt, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewStore(mock).Create(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestStore_GetByTokenHash(t *testing.T) {
	id := ulid.Make()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		check     func(t *testing.T, r *session.Record, err error)
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM http_sessions\s+WHERE token_hash = \$1`).
					WithArgs("hash").
					WillReturnRows(pgxmock.NewRows(sessionColumns).
						AddRow(id.String(), "hash", []byte(`{"k":"v"}`), now.Add(time.Hour), now, now))
			},
			check: func(t *testing.T, r *session.Record, err error) {
				require.NoError(t, err)
				assert.Equal(t, id, r.ID)
				assert.JSONEq(t, `"v"`, string(r.Data["k"]))
			},
		},
		{
			name: "missing",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM http_sessions`).
					WithArgs("hash").
					WillReturnRows(pgxmock.NewRows(sessionColumns))
			},
			check: func(t *testing.T, _ *session.Record, err error) {
				assert.ErrorIs(t, err, session.ErrNotFound)
			},
		},
		{
			name: "corrupt id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM http_sessions`).
					WithArgs("hash").
					WillReturnRows(pgxmock.NewRows(sessionColumns).
						AddRow("not-a-ulid", "hash", []byte(`{}`), now, now, now))
			},
			check: func(t *testing.T, _ *session.Record, err error) {
				require.Error(t, err)
				assert.NotErrorIs(t, err, session.ErrNotFound)
			},
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM http_sessions`).
					WithArgs("hash").
					WillReturnError(errors.New("connection refused"))
			},
			check: func(t *testing.T, _ *session.Record, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			r, err := NewStore(mock).GetByTokenHash(context.Background(), "hash")
			tt.check(t, r, err)
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestStore_Update(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &session.Record{ID: ulid.Make(), ExpiresAt: now.Add(time.Hour), LastSeenAt: now}

	t.Run("updated", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`UPDATE http_sessions SET data = \$2`).
			WithArgs(r.ID.String(), []byte(`{}`), r.ExpiresAt, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewStore(mock).Update(context.Background(), r))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`UPDATE http_sessions`).
			WithArgs(r.ID.String(), []byte(`{}`), r.ExpiresAt, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewStore(mock).Update(context.Background(), r)
		assert.ErrorIs(t, err, session.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestStore_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM http_sessions WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := NewStore(mock).DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	id := ulid.Make()
	mock.ExpectExec(`DELETE FROM http_sessions WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnError(errors.New("connection refused"))

	err = NewStore(mock).Delete(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}
