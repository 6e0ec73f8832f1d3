// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions controls how Connect reaches the database.
type ConnectOptions struct {
	// Timeout bounds the whole connect-and-ping sequence, retries included.
	Timeout time.Duration
	// BaseDelay is the first retry delay; later delays double.
	BaseDelay time.Duration
	// MaxRetries caps the number of retries after the first attempt.
	MaxRetries uint64
	Logger     *slog.Logger
}

// DefaultConnectOptions returns the options used by the server.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Timeout:    30 * time.Second,
		BaseDelay:  250 * time.Millisecond,
		MaxRetries: 8,
		Logger:     slog.Default(),
	}
}

// pinger is the part of a pool Connect checks before returning it.
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// newPool is replaced in tests.
var newPool = func(ctx context.Context, cfg *pgxpool.Config) (pinger, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Connect opens a pgx pool for databaseURL and pings it, retrying with
// exponential backoff while the database is unreachable. Configuration
// errors in the URL are not retried.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	p, err := connect(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	pool, ok := p.(*pgxpool.Pool)
	if !ok {
		p.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").Errorf("unexpected pool type %T", p)
	}
	return pool, nil
}

func connect(ctx context.Context, cfg *pgxpool.Config, opts ConnectOptions) (pinger, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultConnectOptions().BaseDelay
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewExponential(opts.BaseDelay))

	var (
		pool    pinger
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := newPool(ctx, cfg)
		if err != nil {
			opts.Logger.WarnContext(ctx, "database pool creation failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			opts.Logger.WarnContext(ctx, "database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "connect to database").
			With("attempts", attempt).
			Wrap(err)
	}

	opts.Logger.InfoContext(ctx, "database connected", "attempts", attempt)
	return pool, nil
}
