// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/account/postgres"
	"github.com/holomush/accountd/pkg/errutil"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *postgres.Store
		svc   *account.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := testPool.Exec(ctx, `TRUNCATE accounts RESTART IDENTITY`)
		Expect(err).NotTo(HaveOccurred())

		store = postgres.NewStore(testPool)
		svc, err = account.NewService(store, account.NewSaltedDigestHasher())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Insert", func() {
		It("assigns sequential ids and timestamps", func() {
			id, err := store.Insert(ctx, &account.Account{AccountName: "alice1", CredentialDigest: "d", GroupCode: "42"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(1)))

			a, err := store.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.AccountName).To(Equal("alice1"))
			Expect(a.CreatedAt).NotTo(BeZero())
		})

		It("reports a taken group code as a duplicate", func() {
			_, err := store.Insert(ctx, &account.Account{AccountName: "alice1", CredentialDigest: "d", GroupCode: "42"})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Insert(ctx, &account.Account{AccountName: "bob_22", CredentialDigest: "d", GroupCode: "42"})
			Expect(err).To(MatchError(account.ErrDuplicate))
		})
	})

	Describe("through the account service", func() {
		It("registers, logs in and rejects a second registration", func() {
			id, err := svc.Register(ctx, "alice1", "password1", "password1", "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNumerically(">", 0))

			_, err = svc.Register(ctx, "alice1", "password1", "password1", "43")
			Expect(errutil.Code(err)).To(Equal(account.CodeConflict))

			digest, err := store.FindOne(ctx, account.ByAccountName("alice1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(digest.CredentialDigest).To(Equal("cabb362c24cc92dbd7a150259b3db47d"))
		})

		It("finds by display name substring in id order", func() {
			for i, name := range []string{"Alice", "Bob", "Alicia"} {
				_, err := svc.Provision(ctx, account.Registration{
					AccountName:     "user_" + name,
					Password:        "password1",
					ConfirmPassword: "password1",
					GroupCode:       string(rune('1' + i)),
					DisplayName:     name,
				})
				Expect(err).NotTo(HaveOccurred())
			}

			found, err := store.Find(ctx, account.DisplayNameContains("Ali"))
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
			Expect(found[0].DisplayName).To(Equal("Alice"))
			Expect(found[1].DisplayName).To(Equal("Alicia"))

			all, err := store.Find(ctx, account.DisplayNameContains(""))
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("hides soft-deleted accounts and frees their name", func() {
			id, err := svc.Register(ctx, "alice1", "password1", "password1", "42")
			Expect(err).NotTo(HaveOccurred())

			deleted, err := store.Delete(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			_, err = store.GetByID(ctx, id)
			Expect(err).To(MatchError(account.ErrNotFound))

			n, err := store.Count(ctx, account.ByAccountName("alice1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			again, err := store.Delete(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeFalse())

			_, err = svc.Register(ctx, "alice1", "password1", "password1", "42")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
