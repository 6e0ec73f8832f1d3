// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"strings"
	"unicode/utf8"
)

// Field length constraints, counted in characters (runes).
const (
	MinAccountNameLength = 4
	MinPasswordLength    = 8
	MaxGroupCodeLength   = 5
)

// forbiddenAccountNameChars lists characters that may not appear anywhere in
// an account name: ASCII punctuation plus the full-width and CJK forms of the
// same symbols.
const forbiddenAccountNameChars = "`~!@#$%^&*()+=|{}':;,\\.<>/?" +
	"！￥…（）—【】‘’“”；：。，、？"

// ValidateAccountName reports whether name is long enough and free of
// forbidden characters.
func ValidateAccountName(name string) bool {
	if utf8.RuneCountInString(name) < MinAccountNameLength {
		return false
	}
	return !strings.ContainsAny(name, forbiddenAccountNameChars)
}

// ValidateCredential reports whether a registration password and its
// confirmation are both long enough and identical.
func ValidateCredential(password, confirmPassword string) bool {
	if !ValidateLoginPassword(password) || !ValidateLoginPassword(confirmPassword) {
		return false
	}
	return password == confirmPassword
}

// ValidateLoginPassword reports whether password is long enough to be
// worth checking against the store.
func ValidateLoginPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// ValidateGroupCode reports whether code fits the group code length limit.
func ValidateGroupCode(code string) bool {
	return utf8.RuneCountInString(code) <= MaxGroupCodeLength
}

// isBlank reports whether s is empty or whitespace only.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func anyBlank(values ...string) bool {
	for _, v := range values {
		if isBlank(v) {
			return true
		}
	}
	return false
}
