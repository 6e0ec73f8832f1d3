// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

// LoginStateKey is the session key holding the logged-in SafeAccount.
const LoginStateKey = "loginState"

// Session is one client's server-side key/value state.
type Session interface {
	// Get decodes the value stored under key into dest.
	// Returns (false, nil) if key is absent.
	Get(key string, dest any) (bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value any) error

	// Remove deletes key and reports whether it was present.
	Remove(key string) bool
}

// loginState returns the SafeAccount stored in sess, or nil if there is none.
func loginState(sess Session) (*SafeAccount, error) {
	if sess == nil {
		return nil, nil
	}
	var owner SafeAccount
	ok, err := sess.Get(LoginStateKey, &owner)
	if err != nil || !ok {
		return nil, err
	}
	return &owner, nil
}
