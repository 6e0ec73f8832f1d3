// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/holomush/accountd/internal/account"
)

// provisionConfig holds configuration for the provision command.
type provisionConfig struct {
	accountName string
	groupCode   string
	role        string
	displayName string
	email       string
	timeout     time.Duration
}

// NewProvisionCmd creates the provision subcommand.
func NewProvisionCmd() *cobra.Command {
	cfg := &provisionConfig{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a single account, prompting for its password",
		Long: `Creates one account with the given role. The password is read from
the terminal without echo, or from the first line of stdin when stdin is
not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProvision(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.accountName, "account-name", "", "account name (required)")
	cmd.Flags().StringVar(&cfg.groupCode, "group-code", "", "group code (required)")
	cmd.Flags().StringVar(&cfg.role, "role", "ordinary", "role: ordinary or administrator")
	cmd.Flags().StringVar(&cfg.displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&cfg.email, "email", "", "email address")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultAdminTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	_ = cmd.MarkFlagRequired("account-name")
	_ = cmd.MarkFlagRequired("group-code")

	return cmd
}

func runProvision(cmd *cobra.Command, pc *provisionConfig) error {
	role, err := account.ParseRole(pc.role)
	if err != nil {
		return err
	}

	password, confirm, err := readPasswords(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pc.timeout)
	defer cancel()

	logger := slog.Default()
	store, closeStore, err := openAccountStore(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer closeStore()

	svc, err := account.NewServiceWithLogger(store, account.NewSaltedDigestHasher(), logger)
	if err != nil {
		return err
	}

	id, err := svc.Provision(ctx, account.Registration{
		AccountName:     pc.accountName,
		Password:        password,
		ConfirmPassword: confirm,
		GroupCode:       pc.groupCode,
		Role:            role,
		DisplayName:     pc.displayName,
		Email:           pc.email,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Created %s account %q with id %d\n", role, pc.accountName, id)
	return nil
}

// readPasswords returns the password and its confirmation. On a terminal
// both are prompted for without echo; otherwise one line is read from
// stdin and used for both.
func readPasswords(cmd *cobra.Command) (password, confirm string, err error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err = promptHidden(cmd, f, "Password: ")
		if err != nil {
			return "", "", err
		}
		confirm, err = promptHidden(cmd, f, "Confirm password: ")
		if err != nil {
			return "", "", err
		}
		return password, confirm, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", "", oops.Code("PASSWORD_READ_FAILED").Wrapf(err, "read password from stdin")
	}
	password = strings.TrimRight(line, "\r\n")
	return password, password, nil
}

func promptHidden(cmd *cobra.Command, f *os.File, prompt string) (string, error) {
	cmd.PrintErr(prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	cmd.PrintErrln()
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrapf(err, "read password")
	}
	return string(b), nil
}
