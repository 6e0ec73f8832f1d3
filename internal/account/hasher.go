// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"crypto/md5" //nolint:gosec // G501: digest format is fixed by existing stored credentials
	"encoding/hex"
)

// credentialSalt is prepended to every password before digesting. It is
// process-wide and compiled in; changing it invalidates every stored digest.
const credentialSalt = "lucas"

// Hasher turns a password into its stored credential digest.
type Hasher interface {
	// Digest returns the digest of password. Equal passwords always
	// produce equal digests.
	Digest(password string) string
}

// SaltedDigestHasher implements Hasher as hex(MD5(salt + password)).
type SaltedDigestHasher struct{}

// NewSaltedDigestHasher creates a new SaltedDigestHasher.
func NewSaltedDigestHasher() *SaltedDigestHasher {
	return &SaltedDigestHasher{}
}

// Digest returns the lowercase hex digest of the salted password.
func (h *SaltedDigestHasher) Digest(password string) string {
	sum := md5.Sum([]byte(credentialSalt + password)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// Compile-time interface check.
var _ Hasher = (*SaltedDigestHasher)(nil)
