// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
	accountpg "github.com/holomush/accountd/internal/account/postgres"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/session"
	sessionpg "github.com/holomush/accountd/internal/session/postgres"
	"github.com/holomush/accountd/internal/store"
)

const readinessTimeout = 2 * time.Second

// openBackend opens the stores selected by cfg.Storage. For postgres it
// applies pending migrations first when auto_migrate is set.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; accounts and sessions are lost on exit")
		return &Backend{
			Accounts: account.NewMemoryStore(),
			Sessions: session.NewMemoryStore(),
			Ready:    func() bool { return true },
			Close:    func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.Storage.AutoMigrate {
			if err := autoMigrate(cfg.Storage.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}

		opts := store.DefaultConnectOptions()
		opts.Timeout = cfg.Storage.ConnectTimeout
		opts.Logger = logger
		pool, err := store.Connect(ctx, cfg.Storage.DatabaseURL, opts)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to database")

		return &Backend{
			Accounts: accountpg.NewStore(pool),
			Sessions: sessionpg.NewStore(pool),
			Ready: func() bool {
				pingCtx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
				defer cancel()
				return pool.Ping(pingCtx) == nil
			},
			Close: pool.Close,
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "storage.driver").
			Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// autoMigrate applies pending migrations before the pool is opened.
func autoMigrate(databaseURL string, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	logger.Info("applying database migrations")
	if err := m.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	return nil
}

// openAccountStore connects to PostgreSQL for the one-shot admin
// commands. It is replaced in tests.
var openAccountStore = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (account.Store, func(), error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("key", "storage.driver").
			Errorf("this command requires the %q storage driver", config.DriverPostgres)
	}
	opts := store.DefaultConnectOptions()
	opts.Timeout = cfg.Storage.ConnectTimeout
	opts.Logger = logger
	pool, err := store.Connect(ctx, cfg.Storage.DatabaseURL, opts)
	if err != nil {
		return nil, nil, err
	}
	return accountpg.NewStore(pool), pool.Close, nil
}
