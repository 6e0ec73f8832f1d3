// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"encoding/json"
	"maps"
	"sync"

	"github.com/samber/oops"
)

// Session is one client's key/value state for the duration of a request.
// It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	record *Record
	token  string
	values map[string]json.RawMessage
	dirty  bool
}

func newSession() *Session {
	return &Session{values: make(map[string]json.RawMessage)}
}

func fromRecord(token string, r *Record) *Session {
	values := make(map[string]json.RawMessage, len(r.Data))
	maps.Copy(values, r.Data)
	return &Session{record: r, token: token, values: values}
}

// Get decodes the value stored under key into dest.
func (s *Session) Get(key string, dest any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, oops.With("key", key).Wrap(err)
	}
	return true, nil
}

// Set stores value under key as JSON.
func (s *Session) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return oops.With("key", key).Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
	s.dirty = true
	return nil
}

// Remove deletes key and reports whether it was present.
func (s *Session) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	s.dirty = true
	return true
}

// IsNew reports whether the session has never been stored.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record == nil
}

// Dirty reports whether the session changed since it was loaded or saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Token returns the client token of a stored session, or "".
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Len returns the number of keys in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
