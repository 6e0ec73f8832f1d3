// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package seed provisions accounts listed in a YAML seed file.
package seed

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/pkg/errutil"
)

// ErrEmpty is returned for an empty seed document.
var ErrEmpty = errors.New("seed data is empty")

// File is the top level of a seed file.
type File struct {
	Accounts []Entry `yaml:"accounts" json:"accounts" jsonschema:"minItems=1"`
}

// Entry describes one account to provision.
type Entry struct {
	AccountName string `yaml:"accountName" json:"accountName" jsonschema:"minLength=4"`
	Password    string `yaml:"password" json:"password" jsonschema:"minLength=8"`
	GroupCode   string `yaml:"groupCode" json:"groupCode" jsonschema:"minLength=1,maxLength=5"`
	Role        string `yaml:"role,omitempty" json:"role,omitempty" jsonschema:"enum=ordinary,enum=administrator,enum=admin"`
	DisplayName string `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	AvatarURL   string `yaml:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Gender      int    `yaml:"gender,omitempty" json:"gender,omitempty"`
	Phone       string `yaml:"phone,omitempty" json:"phone,omitempty"`
	Email       string `yaml:"email,omitempty" json:"email,omitempty"`
}

// Registration converts e to an account registration.
func (e Entry) Registration() (account.Registration, error) {
	role, err := account.ParseRole(e.Role)
	if err != nil {
		return account.Registration{}, err
	}
	return account.Registration{
		AccountName:     e.AccountName,
		Password:        e.Password,
		ConfirmPassword: e.Password,
		GroupCode:       e.GroupCode,
		Role:            role,
		DisplayName:     e.DisplayName,
		AvatarURL:       e.AvatarURL,
		Gender:          e.Gender,
		Phone:           e.Phone,
		Email:           e.Email,
	}, nil
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, oops.Code("SEED_INVALID").Wrapf(err, "decode seed file")
	}
	return &f, nil
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrapf(err, "read seed file")
	}
	f, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return f, nil
}

// Provisioner creates accounts.
type Provisioner interface {
	Provision(ctx context.Context, reg account.Registration) (int64, error)
}

// Result summarises an Apply run.
type Result struct {
	Created int
	Skipped int
}

// Apply provisions every entry of f in order. Entries whose account name
// or group code is already taken are skipped, so applying the same file
// twice is harmless. The first other failure stops the run.
func Apply(ctx context.Context, p Provisioner, f *File, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var res Result
	for i, e := range f.Accounts {
		reg, err := e.Registration()
		if err != nil {
			return res, oops.With("entry", i).With("account_name", e.AccountName).Wrap(err)
		}

		id, err := p.Provision(ctx, reg)
		if err != nil {
			if errutil.Code(err) == account.CodeConflict {
				logger.InfoContext(ctx, "seed account already exists, skipping",
					"account_name", e.AccountName,
					"group_code", e.GroupCode)
				res.Skipped++
				continue
			}
			return res, oops.With("entry", i).With("account_name", e.AccountName).Wrap(err)
		}

		logger.InfoContext(ctx, "seed account created",
			"account_id", id,
			"account_name", e.AccountName,
			"role", reg.Role.String())
		res.Created++
	}
	return res, nil
}
