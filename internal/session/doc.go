// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session provides server-side HTTP sessions.
//
// A client holds an opaque random token; only its SHA-256 hash is stored.
// Session values are JSON documents keyed by name. A session is written to
// its Store only when a handler changes it, and every load slides its
// expiry forward.
package session
