// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/store"
)

// isolateConfig points config discovery at an empty directory and sets
// DATABASE_URL.
func isolateConfig(t *testing.T) {
	t.Helper()
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.DatabaseURLEnv, "postgres://test@localhost/accountd")
}

// useMemoryAccounts replaces the admin-command store with store.
func useMemoryAccounts(t *testing.T, accounts account.Store) {
	t.Helper()
	orig := openAccountStore
	openAccountStore = func(context.Context, *config.Config, *slog.Logger) (account.Store, func(), error) {
		return accounts, func() {}, nil
	}
	t.Cleanup(func() { openAccountStore = orig })
}

// runRoot executes the root command with args and stdin.
func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type fakeMigrator struct {
	url    string
	status store.MigrationStatus
	calls  []string
	steps  int
	forced int
	upErr  error
	closed bool
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	if m.upErr != nil {
		return m.upErr
	}
	m.status.Version = 2
	m.status.Name = "000002_http_sessions"
	m.status.Applied = []uint{1, 2}
	m.status.Pending = nil
	return nil
}

func (m *fakeMigrator) Down() error {
	m.calls = append(m.calls, "down")
	m.status = store.MigrationStatus{Pending: []uint{1, 2}}
	return nil
}

func (m *fakeMigrator) Steps(n int) error {
	m.calls = append(m.calls, "steps")
	m.steps = n
	return nil
}

func (m *fakeMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	m.forced = v
	m.status.Dirty = false
	return nil
}

func (m *fakeMigrator) Status() (*store.MigrationStatus, error) {
	st := m.status
	return &st, nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

func useFakeMigrator(t *testing.T, m *fakeMigrator) {
	t.Helper()
	orig := newMigrator
	newMigrator = func(url string) (Migrator, error) {
		m.url = url
		return m, nil
	}
	t.Cleanup(func() { newMigrator = orig })
}

func requireNoErrorOutput(t *testing.T, out string, err error) {
	t.Helper()
	require.NoError(t, err, "output: %s", out)
}
