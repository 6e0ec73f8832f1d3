// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"
)

// MemoryStore is an in-process Store. It enforces the same uniqueness rules
// as the PostgreSQL schema and is used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]*Account
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		accounts: make(map[int64]*Account),
		now:      time.Now,
	}
}

// Count returns the number of live accounts matching p.
func (s *MemoryStore) Count(_ context.Context, p Predicate) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.accounts {
		if p.Matches(a) {
			n++
		}
	}
	return n, nil
}

// FindOne returns the first live account, by ID, matching p.
func (s *MemoryStore) FindOne(ctx context.Context, p Predicate) (*Account, error) {
	found, err := s.Find(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

// Find returns copies of every live account matching p, ordered by ID.
func (s *MemoryStore) Find(_ context.Context, p Predicate) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*Account
	for _, a := range s.accounts {
		if p.Matches(a) {
			c := *a
			found = append(found, &c)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

// GetByID returns a copy of the live account with the given ID.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok || a.Deleted {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

// Insert stores a copy of a, assigning its ID and timestamps.
func (s *MemoryStore) Insert(_ context.Context, a *Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Deleted {
			continue
		}
		if existing.AccountName == a.AccountName {
			return 0, oops.With("field", string(FieldAccountName)).Wrap(ErrDuplicate)
		}
		if existing.GroupCode == a.GroupCode {
			return 0, oops.With("field", string(FieldGroupCode)).Wrap(ErrDuplicate)
		}
	}

	now := s.now()
	stored := *a
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Deleted = false
	s.accounts[stored.ID] = &stored
	s.nextID++

	return stored.ID, nil
}

// Delete soft-deletes the live account with the given ID.
func (s *MemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.Deleted {
		return false, nil
	}
	a.Deleted = true
	a.UpdatedAt = s.now()
	return true, nil
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
