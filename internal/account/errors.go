// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import "errors"

// Error codes returned by Service operations.
const (
	CodeValidationFailed  = "ACCOUNT_VALIDATION_FAILED"
	CodeConflict          = "ACCOUNT_CONFLICT"
	CodeNotFound          = "ACCOUNT_NOT_FOUND"
	CodeNotLoggedIn       = "ACCOUNT_NOT_LOGGED_IN"
	CodeForbidden         = "ACCOUNT_FORBIDDEN"
	CodePersistenceFailed = "ACCOUNT_PERSISTENCE_FAILED"
)

var (
	// ErrNotFound is returned by stores when no live account matches.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned by stores when an insert violates the
	// uniqueness of the account name or group code.
	ErrDuplicate = errors.New("duplicate")
)
