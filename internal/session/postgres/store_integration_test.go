// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/session"
	"github.com/holomush/accountd/internal/session/postgres"
)

var _ = Describe("Store", func() {
	var (
		ctx     context.Context
		store   *postgres.Store
		manager *session.Manager
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := testPool.Exec(ctx, `TRUNCATE http_sessions`)
		Expect(err).NotTo(HaveOccurred())

		now = time.Now().UTC().Truncate(time.Microsecond)
		store = postgres.NewStore(testPool)
		manager, err = session.NewManager(store, session.Options{
			TTL: time.Minute,
			Now: func() time.Time { return now },
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips login state through a token", func() {
		sess, err := manager.Load(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		owner := &account.SafeAccount{ID: 7, AccountName: "alice1", Role: account.RoleAdministrator}
		Expect(sess.Set(account.LoginStateKey, owner)).To(Succeed())

		token, expires, err := manager.Save(ctx, sess)
		Expect(err).NotTo(HaveOccurred())
		Expect(token).NotTo(BeEmpty())
		Expect(expires).To(BeTemporally("==", now.Add(time.Minute)))

		loaded, err := manager.Load(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(account.IsAdministrator(loaded)).To(BeTrue())

		var got account.SafeAccount
		ok, err := loaded.Get(account.LoginStateKey, &got)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got.AccountName).To(Equal("alice1"))
	})

	It("stores only the token hash", func() {
		sess, _ := manager.Load(ctx, "")
		Expect(sess.Set("k", 1)).To(Succeed())
		token, _, err := manager.Save(ctx, sess)
		Expect(err).NotTo(HaveOccurred())

		var n int
		Expect(testPool.QueryRow(ctx, `SELECT count(*) FROM http_sessions WHERE token_hash = $1`, token).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())

		r, err := store.GetByTokenHash(ctx, session.HashToken(token))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.TokenHash).To(Equal(session.HashToken(token)))
	})

	It("sweeps expired sessions", func() {
		for range 2 {
			sess, _ := manager.Load(ctx, "")
			Expect(sess.Set("k", 1)).To(Succeed())
			_, _, err := manager.Save(ctx, sess)
			Expect(err).NotTo(HaveOccurred())
		}

		now = now.Add(2 * time.Minute)
		n, err := manager.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))
	})

	It("reports updates of missing records", func() {
		err := store.Update(ctx, &session.Record{ExpiresAt: now, LastSeenAt: now})
		Expect(err).To(MatchError(session.ErrNotFound))
	})
})
