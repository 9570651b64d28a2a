// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package main is the backupseal command line tool. It restores, creates and
// inspects password protected backup containers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/config"
)

// Global flags shared by every subcommand
var (
	configPath string
	debug      bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "backupseal",
	Short: "Password protected backup containers",
	Long: `backupseal restores and creates password protected backup containers.

Modern containers carry a PBKDF2 iteration count and salt in a 16 byte
header followed by AES-256-GCM ciphertext. Legacy containers (--legacy)
can be restored but are never written.

The password is read from $BACKUPSEAL_PASSWORD when set, otherwise it is
prompted for on the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if debug || os.Getenv(cfg.Restore.EnvVarDebug) == "1" {
			cfg.Restore.Debug = true
			cfg.Backup.Debug = true
		}

		level := slog.LevelInfo
		if cfg.Restore.Debug {
			level = slog.LevelDebug
		}
		logger := clog.NewLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		ctx := clog.WithLogger(cmd.Context(), logger)
		cmd.SetContext(ctx)

		// Keys and passwords live in this process, keep them out of core files
		if err := common.DisableCoreDumps(); err != nil {
			clog.FromContext(ctx).Debugf("Could not disable core dumps: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a backupseal.yaml configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	rootCmd.AddCommand(
		restoreCmd(),
		backupCmd(),
		inspectCmd(),
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
