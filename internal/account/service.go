// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Registration describes an account to create. Register fills only the
// credential fields; Provision honours the role and profile fields too.
type Registration struct {
	AccountName     string
	Password        string
	ConfirmPassword string
	GroupCode       string
	Role            Role
	DisplayName     string
	AvatarURL       string
	Gender          int
	Phone           string
	Email           string
}

// Service provides account operations.
type Service struct {
	store  Store
	hasher Hasher
	logger *slog.Logger
}

// NewService creates a new Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(store Store, hasher Hasher) (*Service, error) {
	return NewServiceWithLogger(store, hasher, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a new Service with the provided logger.
func NewServiceWithLogger(store Store, hasher Hasher, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("credential hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		store:  store,
		hasher: hasher,
		logger: logger,
	}, nil
}

// Register creates an ordinary account and returns its ID.
func (s *Service) Register(ctx context.Context, accountName, password, confirmPassword, groupCode string) (int64, error) {
	return s.Provision(ctx, Registration{
		AccountName:     accountName,
		Password:        password,
		ConfirmPassword: confirmPassword,
		GroupCode:       groupCode,
		Role:            RoleOrdinary,
	})
}

// Provision creates an account with the role and profile fields of reg and
// returns its ID. Format checks run before any store access, uniqueness
// checks before hashing, and the insert last.
func (s *Service) Provision(ctx context.Context, reg Registration) (int64, error) {
	if err := validateRegistration(reg); err != nil {
		return 0, err
	}

	if err := s.ensureUnused(ctx, ByAccountName(reg.AccountName), "accountName", "account name already taken"); err != nil {
		return 0, err
	}
	if err := s.ensureUnused(ctx, ByGroupCode(reg.GroupCode), "groupCode", "group code already taken"); err != nil {
		return 0, err
	}

	a := &Account{
		AccountName:      reg.AccountName,
		CredentialDigest: s.hasher.Digest(reg.Password),
		GroupCode:        reg.GroupCode,
		Role:             reg.Role,
		DisplayName:      reg.DisplayName,
		AvatarURL:        reg.AvatarURL,
		Gender:           reg.Gender,
		Phone:            reg.Phone,
		Email:            reg.Email,
	}

	id, err := s.store.Insert(ctx, a)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return 0, oops.Code(CodeConflict).
				With("account_name", reg.AccountName).
				With("group_code", reg.GroupCode).
				Wrapf(err, "account name or group code already taken")
		}
		return 0, oops.Code(CodePersistenceFailed).
			With("operation", "insert account").
			With("account_name", reg.AccountName).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", id,
		"account_name", reg.AccountName,
		"role", reg.Role.String())
	return id, nil
}

func validateRegistration(reg Registration) error {
	if anyBlank(reg.AccountName, reg.Password, reg.ConfirmPassword, reg.GroupCode) {
		return oops.Code(CodeValidationFailed).
			Errorf("account name, password, confirmation and group code are required")
	}
	if !ValidateAccountName(reg.AccountName) {
		return invalidAccountName()
	}
	if !ValidateCredential(reg.Password, reg.ConfirmPassword) {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters and match its confirmation", MinPasswordLength)
	}
	if !ValidateGroupCode(reg.GroupCode) {
		return oops.Code(CodeValidationFailed).
			With("field", "groupCode").
			With("max", MaxGroupCodeLength).
			Errorf("group code must be at most %d characters", MaxGroupCodeLength)
	}
	if !reg.Role.Valid() {
		return oops.Code(CodeValidationFailed).
			With("field", "role").
			With("role", int(reg.Role)).
			Errorf("unknown role %d", int(reg.Role))
	}
	return nil
}

func invalidAccountName() error {
	return oops.Code(CodeValidationFailed).
		With("field", "accountName").
		With("min", MinAccountNameLength).
		Errorf("account name must be at least %d characters and contain no special characters", MinAccountNameLength)
}

func (s *Service) ensureUnused(ctx context.Context, p Predicate, field, msg string) error {
	n, err := s.store.Count(ctx, p)
	if err != nil {
		return oops.Code(CodePersistenceFailed).
			With("operation", "count accounts").
			With("field", field).
			Wrap(err)
	}
	if n > 0 {
		return oops.Code(CodeConflict).With("field", field).Errorf("%s", msg)
	}
	return nil
}

// Login checks the credentials, records the account as the owner of sess
// and returns its desensitized view. An unknown name and a wrong password
// fail identically.
func (s *Service) Login(ctx context.Context, sess Session, accountName, password string) (*SafeAccount, error) {
	if anyBlank(accountName, password) {
		return nil, oops.Code(CodeValidationFailed).Errorf("account name and password are required")
	}
	if !ValidateAccountName(accountName) {
		return nil, invalidAccountName()
	}
	if !ValidateLoginPassword(password) {
		return nil, oops.Code(CodeValidationFailed).
			With("field", "password").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if sess == nil {
		return nil, oops.Errorf("session is required")
	}

	digest := s.hasher.Digest(password)
	a, err := s.store.FindOne(ctx, ByCredentials(accountName, digest))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.InfoContext(ctx, "login failed: account name and password do not match",
				"account_name", accountName)
			return nil, oops.Code(CodeNotFound).Errorf("account name or password is incorrect")
		}
		return nil, oops.Code(CodePersistenceFailed).
			With("operation", "find account by credentials").
			Wrap(err)
	}

	safe := Desensitize(a)
	if err := sess.Set(LoginStateKey, safe); err != nil {
		return nil, oops.Code(CodePersistenceFailed).
			With("operation", "store login state").
			With("account_id", a.ID).
			Wrap(err)
	}
	return safe, nil
}

// Logout removes the login state from sess. It returns the number of
// entries removed and never fails.
func (s *Service) Logout(_ context.Context, sess Session) int {
	if sess == nil {
		return 0
	}
	if sess.Remove(LoginStateKey) {
		return 1
	}
	return 0
}

// CurrentAccount returns a fresh view of the account logged into sess.
// The account is re-read from the store; if it no longer exists the stale
// login state is dropped and the caller is treated as logged out.
func (s *Service) CurrentAccount(ctx context.Context, sess Session) (*SafeAccount, error) {
	owner, err := loginState(sess)
	if err != nil {
		return nil, oops.Code(CodeNotLoggedIn).
			With("operation", "decode login state").
			Wrapf(err, "not logged in")
	}
	if owner == nil {
		return nil, oops.Code(CodeNotLoggedIn).Errorf("not logged in")
	}

	a, err := s.store.GetByID(ctx, owner.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			sess.Remove(LoginStateKey)
			return nil, oops.Code(CodeNotLoggedIn).
				With("account_id", owner.ID).
				Errorf("not logged in")
		}
		return nil, oops.Code(CodePersistenceFailed).
			With("operation", "get account by id").
			With("account_id", owner.ID).
			Wrap(err)
	}
	return Desensitize(a), nil
}

// Search lists live accounts whose display name contains displayName; a
// blank displayName lists every account. Administrator only.
func (s *Service) Search(ctx context.Context, sess Session, displayName string) ([]*SafeAccount, error) {
	if !IsAdministrator(sess) {
		return nil, oops.Code(CodeForbidden).Errorf("administrator role required")
	}
	if isBlank(displayName) {
		displayName = ""
	}

	found, err := s.store.Find(ctx, DisplayNameContains(displayName))
	if err != nil {
		return nil, oops.Code(CodePersistenceFailed).
			With("operation", "search accounts").
			With("display_name", displayName).
			Wrap(err)
	}
	return DesensitizeAll(found), nil
}

// Delete soft-deletes the account with the given ID and reports whether a
// live account was removed. Administrator only.
func (s *Service) Delete(ctx context.Context, sess Session, id int64) (bool, error) {
	if !IsAdministrator(sess) {
		return false, oops.Code(CodeForbidden).Errorf("administrator role required")
	}
	if id <= 0 {
		return false, oops.Code(CodeValidationFailed).
			With("field", "id").
			With("id", id).
			Errorf("account id must be positive")
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, oops.Code(CodePersistenceFailed).
			With("operation", "delete account").
			With("account_id", id).
			Wrap(err)
	}
	if deleted {
		s.logger.InfoContext(ctx, "account deleted", "account_id", id)
	}
	return deleted, nil
}
