// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the accountd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - account registration and session service",
		Long: `accountd registers accounts, logs them in and out over cookie
sessions, and lets administrators search and delete accounts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/accountd/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewProvisionCmd())

	return cmd
}

// loadConfig layers the config file, environment and the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Loader{Path: configFile, Flags: cmd.Flags()}.Load()
}
