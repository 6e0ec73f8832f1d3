// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the number of random bytes in a session token.
const TokenBytes = 32

// GenerateToken creates a random token and its hash. The token is sent to
// the client; only the hash is stored.
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, TokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 of token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken reports whether token hashes to hash, in constant time.
func VerifyToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}

// wellFormed reports whether token could have come from GenerateToken.
func wellFormed(token string) bool {
	if len(token) != hex.EncodedLen(TokenBytes) {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
