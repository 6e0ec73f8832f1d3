// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides the PostgreSQL account store.
package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
)

// poolIface is the subset of pgxpool.Pool used by Store. It is satisfied by
// *pgxpool.Pool and by pgxmock pools.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectColumns = `id, account_name, credential_digest, display_name, avatar_url,
	       gender, phone, email, status, role, group_code, created_at, updated_at`

// Store implements account.Store using PostgreSQL.
type Store struct {
	pool poolIface
}

// NewStore creates a new Store.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Count returns the number of live accounts matching p.
func (s *Store) Count(ctx context.Context, p account.Predicate) (int64, error) {
	where, args, err := compile(p)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE `+where, args...).Scan(&n); err != nil {
		return 0, oops.With("operation", "count accounts").Wrap(err)
	}
	return n, nil
}

// FindOne returns the live account with the lowest ID matching p.
func (s *Store) FindOne(ctx context.Context, p account.Predicate) (*account.Account, error) {
	where, args, err := compile(p)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", "find account").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "find account").Wrap(err)
	}
	return a, nil
}

// Find returns every live account matching p, ordered by ID.
func (s *Store) Find(ctx context.Context, p account.Predicate) ([]*account.Account, error) {
	where, args, err := compile(p)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM accounts WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, oops.With("operation", "find accounts").Wrap(err)
	}
	defer rows.Close()

	var found []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, oops.With("operation", "scan account").Wrap(err)
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate accounts").Wrap(err)
	}
	return found, nil
}

// GetByID retrieves a live account by ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE id = $1 AND NOT deleted`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get account by id").With("id", id).Wrap(err)
	}
	return a, nil
}

// Insert stores a new account and returns the ID assigned by the database.
// A unique index violation is reported as account.ErrDuplicate.
func (s *Store) Insert(ctx context.Context, a *account.Account) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (
			account_name, credential_digest, display_name, avatar_url,
			gender, phone, email, status, role, group_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		a.AccountName,
		a.CredentialDigest,
		a.DisplayName,
		a.AvatarURL,
		a.Gender,
		a.Phone,
		a.Email,
		a.Status,
		int(a.Role),
		a.GroupCode,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, oops.With("constraint", pgErr.ConstraintName).
				With("account_name", a.AccountName).
				Wrap(account.ErrDuplicate)
		}
		return 0, oops.With("operation", "insert account").
			With("account_name", a.AccountName).
			Wrap(err)
	}
	return id, nil
}

// Delete soft-deletes a live account.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE accounts SET deleted = TRUE, updated_at = $2
		WHERE id = $1 AND NOT deleted
	`, id, time.Now().UTC())
	if err != nil {
		return false, oops.With("operation", "delete account").With("id", id).Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// compile renders p as a WHERE clause over live accounts with positional
// arguments.
func compile(p account.Predicate) (string, []any, error) {
	var b strings.Builder
	b.WriteString("NOT deleted")

	args := make([]any, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		col, err := column(c.Field)
		if err != nil {
			return "", nil, err
		}
		args = append(args, c.Value)
		placeholder := "$" + strconv.Itoa(len(args))

		b.WriteString(" AND ")
		switch c.Op {
		case account.OpEqual:
			b.WriteString(col + " = " + placeholder)
		case account.OpContains:
			b.WriteString("strpos(" + col + ", " + placeholder + ") > 0")
		default:
			return "", nil, oops.With("op", int(c.Op)).Errorf("unsupported predicate operator %d", int(c.Op))
		}
	}
	return b.String(), args, nil
}

func column(f account.Field) (string, error) {
	switch f {
	case account.FieldAccountName, account.FieldGroupCode,
		account.FieldCredentialDigest, account.FieldDisplayName:
		return string(f), nil
	default:
		return "", oops.With("field", string(f)).Errorf("unsupported predicate field %q", string(f))
	}
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a    account.Account
		role int
	)
	err := row.Scan(
		&a.ID,
		&a.AccountName,
		&a.CredentialDigest,
		&a.DisplayName,
		&a.AvatarURL,
		&a.Gender,
		&a.Phone,
		&a.Email,
		&a.Status,
		&role,
		&a.GroupCode,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	a.Role = account.Role(role)
	return &a, nil
}

// Compile-time interface check.
var _ account.Store = (*Store)(nil)
