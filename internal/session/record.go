// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound indicates the session record does not exist.
var ErrNotFound = errors.New("session not found")

// Record is the stored form of a session.
type Record struct {
	ID         ulid.ULID
	TokenHash  string
	Data       map[string]json.RawMessage
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// IsExpiredAt reports whether the record has expired at t.
func (r *Record) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// clone returns a deep copy of r.
func (r *Record) clone() *Record {
	c := *r
	c.Data = make(map[string]json.RawMessage, len(r.Data))
	for k, v := range r.Data {
		c.Data[k] = append(json.RawMessage(nil), v...)
	}
	return &c
}

// Store persists session records. Errors carry no oops code; the Manager
// assigns one.
type Store interface {
	// Create stores a new record.
	Create(ctx context.Context, r *Record) error

	// GetByTokenHash returns the record with the given token hash.
	// Returns ErrNotFound if there is none. Expired records are returned;
	// the caller decides what to do with them.
	GetByTokenHash(ctx context.Context, hash string) (*Record, error)

	// Update replaces the data, expiry and last-seen time of a record.
	// Returns ErrNotFound if the record does not exist.
	Update(ctx context.Context, r *Record) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes every record expired at now and returns how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
