// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"strings"
	"time"

	"github.com/samber/oops"
)

// Role is an account's authorization tier.
type Role int

// Roles. The numeric values are persisted.
const (
	RoleOrdinary      Role = 0
	RoleAdministrator Role = 1
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleOrdinary || r == RoleAdministrator
}

func (r Role) String() string {
	switch r {
	case RoleOrdinary:
		return "ordinary"
	case RoleAdministrator:
		return "administrator"
	default:
		return "unknown"
	}
}

// ParseRole parses a role name as produced by Role.String.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ordinary":
		return RoleOrdinary, nil
	case "administrator", "admin":
		return RoleAdministrator, nil
	default:
		return RoleOrdinary, oops.Code(CodeValidationFailed).
			With("role", s).
			Errorf("unknown role %q", s)
	}
}

// Account is a stored identity record.
type Account struct {
	ID               int64
	AccountName      string
	CredentialDigest string `json:"-"`
	DisplayName      string
	AvatarURL        string
	Gender           int
	Phone            string
	Email            string
	Status           int
	Role             Role
	GroupCode        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Deleted          bool
}

// SafeAccount is the desensitized view of an Account. It has no credential
// digest and its status is always zero.
type SafeAccount struct {
	ID          int64     `json:"id"`
	AccountName string    `json:"accountName"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Gender      int       `json:"gender"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Status      int       `json:"status"`
	Role        Role      `json:"role"`
	GroupCode   string    `json:"groupCode"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Desensitize projects a into a SafeAccount. A nil account yields nil.
func Desensitize(a *Account) *SafeAccount {
	if a == nil {
		return nil
	}
	return &SafeAccount{
		ID:          a.ID,
		AccountName: a.AccountName,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Gender:      a.Gender,
		Phone:       a.Phone,
		Email:       a.Email,
		Status:      0,
		Role:        a.Role,
		GroupCode:   a.GroupCode,
		CreatedAt:   a.CreatedAt,
	}
}

// DesensitizeAll projects every account in accounts.
func DesensitizeAll(accounts []*Account) []*SafeAccount {
	safe := make([]*SafeAccount, 0, len(accounts))
	for _, a := range accounts {
		if a == nil {
			continue
		}
		safe = append(safe, Desensitize(a))
	}
	return safe
}
