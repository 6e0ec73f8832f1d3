// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/accountd/internal/store"
)

// startPostgres starts a PostgreSQL container and returns its URL.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("accountd_test"),
		postgres.WithUsername("accountd"),
		postgres.WithPassword("accountd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}
	return connStr, func() { _ = container.Terminate(ctx) }, nil
}

var _ = Describe("Schema", func() {
	var (
		ctx     context.Context
		pool    *pgxpool.Pool
		cleanup func()
	)

	BeforeEach(func() {
		ctx = context.Background()

		connStr, stop, err := startPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		opts := store.DefaultConnectOptions()
		opts.Logger = slog.New(slog.DiscardHandler)
		pool, err = store.Connect(ctx, connStr, opts)
		Expect(err).NotTo(HaveOccurred())

		cleanup = func() {
			pool.Close()
			stop()
		}
	})

	AfterEach(func() {
		cleanup()
	})

	insert := func(name, group string) error {
		_, err := pool.Exec(ctx,
			`INSERT INTO accounts (account_name, credential_digest, group_code) VALUES ($1, 'd', $2)`,
			name, group)
		return err
	}

	isUniqueViolation := func(err error) bool {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			return false
		}
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	It("rejects a second live account with the same name", func() {
		Expect(insert("alice1", "1")).To(Succeed())
		err := insert("alice1", "2")
		Expect(err).To(HaveOccurred())
		Expect(isUniqueViolation(err)).To(BeTrue())
	})

	It("rejects a second live account with the same group code", func() {
		Expect(insert("alice1", "42")).To(Succeed())
		err := insert("bob_22", "42")
		Expect(err).To(HaveOccurred())
		Expect(isUniqueViolation(err)).To(BeTrue())
	})

	It("frees name and group code once an account is soft-deleted", func() {
		Expect(insert("alice1", "42")).To(Succeed())
		_, err := pool.Exec(ctx, `UPDATE accounts SET deleted = TRUE WHERE account_name = 'alice1'`)
		Expect(err).NotTo(HaveOccurred())

		Expect(insert("alice1", "42")).To(Succeed())
	})

	It("rejects unknown roles", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO accounts (account_name, credential_digest, group_code, role) VALUES ('carol1', 'd', '3', 7)`)
		Expect(err).To(HaveOccurred())
	})
})
