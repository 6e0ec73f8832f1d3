// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account service over HTTP.
//
// Every response is a JSON envelope:
//
//	{"code": "OK", "data": ..., "message": "", "description": ""}
//
// The session token travels in an HttpOnly cookie. A session is stored and
// the cookie issued only once a handler writes to it.
package httpapi
