// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[ulid.ULID]*Record
	byHash  map[string]ulid.ULID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[ulid.ULID]*Record),
		byHash:  make(map[string]ulid.ULID),
	}
}

// Create stores a copy of r.
func (s *MemoryStore) Create(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; ok {
		return oops.With("id", r.ID.String()).Errorf("session id already exists")
	}
	if _, ok := s.byHash[r.TokenHash]; ok {
		return oops.Errorf("session token hash already exists")
	}
	s.records[r.ID] = r.clone()
	s.byHash[r.TokenHash] = r.ID
	return nil
}

// GetByTokenHash returns a copy of the record with the given hash.
func (s *MemoryStore) GetByTokenHash(_ context.Context, hash string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return s.records[id].clone(), nil
}

// Update replaces the mutable fields of an existing record.
func (s *MemoryStore) Update(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[r.ID]
	if !ok {
		return oops.With("id", r.ID.String()).Wrap(ErrNotFound)
	}
	updated := r.clone()
	existing.Data = updated.Data
	existing.ExpiresAt = updated.ExpiresAt
	existing.LastSeenAt = updated.LastSeenAt
	return nil
}

// Delete removes the record with the given ID.
func (s *MemoryStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.records[id]; ok {
		delete(s.byHash, r.TokenHash)
		delete(s.records, id)
	}
	return nil
}

// DeleteExpired removes every record expired at now.
func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.records {
		if r.IsExpiredAt(now) {
			delete(s.byHash, r.TokenHash)
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
