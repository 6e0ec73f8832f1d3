// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/accountd/internal/account"
)

func TestSaltedDigestHasher(t *testing.T) {
	hasher := account.NewSaltedDigestHasher()

	t.Run("matches stored digest format", func(t *testing.T) {
		assert.Equal(t, "cabb362c24cc92dbd7a150259b3db47d", hasher.Digest("password1"))
		assert.Equal(t, "8591f60f7f49145cd2cb1d17dd2819d1", hasher.Digest("12345678"))
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, hasher.Digest("samepassword"), hasher.Digest("samepassword"))
	})

	t.Run("different passwords produce different digests", func(t *testing.T) {
		assert.NotEqual(t, hasher.Digest("password1"), hasher.Digest("password2"))
	})

	t.Run("never returns the plaintext", func(t *testing.T) {
		for _, pw := range []string{"password1", "cabb362c24cc92dbd7a150259b3db47d"} {
			assert.NotEqual(t, pw, hasher.Digest(pw))
		}
	})

	t.Run("lowercase hex of 32 characters", func(t *testing.T) {
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), hasher.Digest("anything at all"))
	})
}
