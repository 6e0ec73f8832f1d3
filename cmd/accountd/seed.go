// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/seed"
)

// Default timeout for seed and provision commands.
const defaultAdminTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file     string
	timeout  time.Duration
	validate bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision accounts from a seed file",
		Long: `Creates the accounts listed in a YAML seed file.
This command is idempotent - accounts whose name or group code already
exist are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.file, "file", "f", "", "seed file path (required)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultAdminTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.validate, "validate-only", false, "check the seed file against its schema and exit")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(cmd *cobra.Command, sc *seedConfig) error {
	f, err := seed.Load(sc.file)
	if err != nil {
		return err
	}
	if sc.validate {
		cmd.Printf("%s: %d account(s), valid\n", sc.file, len(f.Accounts))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
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

	res, err := seed.Apply(ctx, svc, f, logger)
	if err != nil {
		return oops.With("operation", "apply seed file").With("path", sc.file).Wrap(err)
	}

	cmd.Printf("Seeding complete: %d created, %d skipped\n", res.Created, res.Skipped)
	return nil
}
