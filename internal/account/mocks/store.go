// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for account collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/account"
)

// MockStore is a testify mock of account.Store.
type MockStore struct {
	mock.Mock
}

// NewMockStore creates a MockStore whose expectations are asserted when the
// test finishes.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockStore {
	m := &MockStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Count implements account.Store.
func (m *MockStore) Count(ctx context.Context, p account.Predicate) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

// FindOne implements account.Store.
func (m *MockStore) FindOne(ctx context.Context, p account.Predicate) (*account.Account, error) {
	args := m.Called(ctx, p)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

// Find implements account.Store.
func (m *MockStore) Find(ctx context.Context, p account.Predicate) ([]*account.Account, error) {
	args := m.Called(ctx, p)
	found, _ := args.Get(0).([]*account.Account)
	return found, args.Error(1)
}

// GetByID implements account.Store.
func (m *MockStore) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

// Insert implements account.Store.
func (m *MockStore) Insert(ctx context.Context, a *account.Account) (int64, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(int64), args.Error(1)
}

// Delete implements account.Store.
func (m *MockStore) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Compile-time interface check.
var _ account.Store = (*MockStore)(nil)
