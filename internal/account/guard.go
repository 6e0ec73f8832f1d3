// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

// IsAdministrator reports whether the account logged into sess holds the
// administrator role. A missing or unreadable login state is not an
// administrator.
func IsAdministrator(sess Session) bool {
	owner, err := loginState(sess)
	if err != nil || owner == nil {
		return false
	}
	return owner.Role == RoleAdministrator
}
