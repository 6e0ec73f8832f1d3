// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"strings"
)

// Field names an Account attribute a Predicate can test.
type Field string

// Queryable fields.
const (
	FieldAccountName      Field = "account_name"
	FieldGroupCode        Field = "group_code"
	FieldCredentialDigest Field = "credential_digest"
	FieldDisplayName      Field = "display_name"
)

// Op is a comparison applied by a Condition.
type Op int

// Comparison operators.
const (
	OpEqual Op = iota
	OpContains
)

// Condition tests one field of an account.
type Condition struct {
	Field Field
	Op    Op
	Value string
}

// Predicate is a conjunction of conditions. The zero Predicate matches every
// live account.
type Predicate struct {
	Conditions []Condition
}

// ByAccountName matches the account with exactly this name.
func ByAccountName(name string) Predicate {
	return Predicate{Conditions: []Condition{{Field: FieldAccountName, Op: OpEqual, Value: name}}}
}

// ByGroupCode matches the account with exactly this group code.
func ByGroupCode(code string) Predicate {
	return Predicate{Conditions: []Condition{{Field: FieldGroupCode, Op: OpEqual, Value: code}}}
}

// ByCredentials matches the account with both this name and this digest.
func ByCredentials(name, digest string) Predicate {
	return Predicate{Conditions: []Condition{
		{Field: FieldAccountName, Op: OpEqual, Value: name},
		{Field: FieldCredentialDigest, Op: OpEqual, Value: digest},
	}}
}

// DisplayNameContains matches accounts whose display name contains s.
// An empty s matches every account.
func DisplayNameContains(s string) Predicate {
	if s == "" {
		return Predicate{}
	}
	return Predicate{Conditions: []Condition{{Field: FieldDisplayName, Op: OpContains, Value: s}}}
}

// Matches evaluates p against a. Deleted accounts never match.
func (p Predicate) Matches(a *Account) bool {
	if a == nil || a.Deleted {
		return false
	}
	for _, c := range p.Conditions {
		v := fieldValue(a, c.Field)
		switch c.Op {
		case OpEqual:
			if v != c.Value {
				return false
			}
		case OpContains:
			if !strings.Contains(v, c.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func fieldValue(a *Account, f Field) string {
	switch f {
	case FieldAccountName:
		return a.AccountName
	case FieldGroupCode:
		return a.GroupCode
	case FieldCredentialDigest:
		return a.CredentialDigest
	case FieldDisplayName:
		return a.DisplayName
	default:
		return ""
	}
}

// Store manages account persistence. Implementations exclude soft-deleted
// accounts from every lookup and count.
type Store interface {
	// Count returns the number of live accounts matching p.
	Count(ctx context.Context, p Predicate) (int64, error)

	// FindOne returns the live account matching p.
	// Returns ErrNotFound if none matches.
	FindOne(ctx context.Context, p Predicate) (*Account, error)

	// Find returns every live account matching p, ordered by ID.
	Find(ctx context.Context, p Predicate) ([]*Account, error)

	// GetByID retrieves a live account by ID.
	// Returns ErrNotFound if it does not exist or was deleted.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// Insert stores a new account and returns its assigned ID.
	// Returns ErrDuplicate if the account name or group code is taken.
	Insert(ctx context.Context, a *Account) (int64, error)

	// Delete soft-deletes a live account. Returns false if no live account
	// had that ID.
	Delete(ctx context.Context, id int64) (bool, error)
}
