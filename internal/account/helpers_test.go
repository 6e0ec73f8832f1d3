// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account_test

import (
	"encoding/json"
	"errors"

	"github.com/holomush/accountd/internal/account"
)

// mapSession is a JSON-backed account.Session for tests.
type mapSession struct {
	values map[string][]byte
	setErr error
}

func newMapSession() *mapSession {
	return &mapSession{values: make(map[string][]byte)}
}

func (s *mapSession) Get(key string, dest any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (s *mapSession) Set(key string, value any) error {
	if s.setErr != nil {
		return s.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	return nil
}

func (s *mapSession) Remove(key string) bool {
	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// loggedInAs returns a session whose login state is a.
func loggedInAs(a *account.SafeAccount) *mapSession {
	sess := newMapSession()
	if err := sess.Set(account.LoginStateKey, a); err != nil {
		panic(err)
	}
	return sess
}

var errStoreDown = errors.New("connection refused")

var _ account.Session = (*mapSession)(nil)
