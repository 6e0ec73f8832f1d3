// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/internal/session"
	"github.com/holomush/accountd/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// BackendFactory opens the account and session stores.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// Backend is an opened pair of account and session stores.
type Backend struct {
	Accounts account.Store
	Sessions session.Store
	// Ready reports whether the backing database is reachable.
	Ready func() bool
	// Close releases the backend.
	Close func()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	SetLogger(logger *slog.Logger)
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}
