// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package account implements account registration, login and the
// session-bound identity checks of accountd.
//
// # Domain Types
//
//   - Account - the stored identity record, including the credential digest
//   - SafeAccount - the desensitized projection returned to callers
//   - Role - the closed set of authorization tiers
//
// Accounts never leave the package boundary raw: every outbound path goes
// through Desensitize.
//
// # Collaborators
//
// The Service depends on a Store (predicate-based persistence), a Hasher
// (credential digests) and, per call, a Session (the client's server-side
// key/value state). IsAdministrator is the only interpreter of Role.
//
// # Credential digests
//
// Digests are MD5 over a fixed, compiled-in salt followed by the password,
// hex encoded. The salt is not per-account and not configurable; this is a
// known weakness kept for compatibility with existing digests.
package account
