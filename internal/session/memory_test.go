// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(hash string, expires time.Time) *Record {
	return &Record{
		ID:        ulid.Make(),
		TokenHash: hash,
		Data:      map[string]json.RawMessage{"k": json.RawMessage(`1`)},
		ExpiresAt: expires,
		CreatedAt: expires.Add(-time.Hour),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create and get by hash", func(t *testing.T) {
		s := NewMemoryStore()
		r := testRecord("h1", now.Add(time.Hour))
		require.NoError(t, s.Create(ctx, r))

		got, err := s.GetByTokenHash(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
		assert.JSONEq(t, `1`, string(got.Data["k"]))
	})

	t.Run("stored records are isolated from callers", func(t *testing.T) {
		s := NewMemoryStore()
		r := testRecord("h1", now.Add(time.Hour))
		require.NoError(t, s.Create(ctx, r))
		r.Data["k"] = json.RawMessage(`2`)

		got, err := s.GetByTokenHash(ctx, "h1")
		require.NoError(t, err)
		assert.JSONEq(t, `1`, string(got.Data["k"]))
	})

	t.Run("duplicate hash rejected", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, testRecord("h1", now)))
		assert.Error(t, s.Create(ctx, testRecord("h1", now)))
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := NewMemoryStore().GetByTokenHash(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		s := NewMemoryStore()
		r := testRecord("h1", now)
		require.NoError(t, s.Create(ctx, r))

		r.Data = map[string]json.RawMessage{"other": json.RawMessage(`"x"`)}
		r.ExpiresAt = now.Add(2 * time.Hour)
		require.NoError(t, s.Update(ctx, r))

		got, err := s.GetByTokenHash(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, now.Add(2*time.Hour), got.ExpiresAt)
		assert.NotContains(t, got.Data, "k")
	})

	t.Run("update missing", func(t *testing.T) {
		err := NewMemoryStore().Update(ctx, testRecord("h1", now))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := NewMemoryStore()
		r := testRecord("h1", now)
		require.NoError(t, s.Create(ctx, r))
		require.NoError(t, s.Delete(ctx, r.ID))
		require.NoError(t, s.Delete(ctx, r.ID))

		_, err := s.GetByTokenHash(ctx, "h1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, testRecord("old", now.Add(-time.Minute))))
		require.NoError(t, s.Create(ctx, testRecord("edge", now)))
		require.NoError(t, s.Create(ctx, testRecord("live", now.Add(time.Minute))))

		n, err := s.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, 1, s.Len())

		_, err = s.GetByTokenHash(ctx, "live")
		assert.NoError(t, err)
	})
}
