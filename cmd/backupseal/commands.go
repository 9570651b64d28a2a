// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/backupseal"
	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/storage"
)

func restoreCmd() *cobra.Command {
	var (
		legacy  bool
		outPath string
		keyring string
	)

	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Decrypt a backup container",
		Example: `  # Restore to stdout
  backupseal restore otp_accounts.json.aes

  # Restore an old format backup into a file
  backupseal restore --legacy --out accounts.json otp_accounts.json.aes

  # Stage the restored data in the user keyring
  backupseal restore --keyring accounts otp_accounts.json.aes`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if outPath != "" && keyring != "" {
				return errors.New("--out and --keyring are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			password, err := readPassword(cfg.Restore.EnvVarPassword, false)
			if err != nil {
				return err
			}

			store := storage.NewFileStorage(cfg.Restore.MaxContainerSize)
			res := backupseal.NewRestorer(&cfg.Restore).RestoreFrom(
				ctx, store, args[0], password, backupseal.FormatFromLegacyFlag(legacy),
			)
			if !res.OK() {
				return fmt.Errorf("restoring %s: %w", args[0], res.Err())
			}

			var target storage.Storage = store
			handle := outPath
			switch {
			case keyring != "":
				ks, err := storage.NewUserKeyringStorage()
				if err != nil {
					return err
				}
				target, handle = ks, keyring
			case outPath == "":
				fmt.Fprintln(os.Stdout, res.Plaintext)
				return nil
			}

			buf := []byte(res.Plaintext)
			defer common.Wipe(buf)
			if err := target.Save(ctx, handle, buf); err != nil {
				return fmt.Errorf("writing restored data: %w", err)
			}
			clog.FromContext(ctx).Infof("Restored backup written to %s", handle)
			return nil
		},
	}

	cmd.Flags().BoolVar(&legacy, "legacy", false, "the backup uses the old unsalted format")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the restored data to a file instead of stdout")
	cmd.Flags().StringVar(&keyring, "keyring", "", "store the restored data in the user keyring under this name")
	return cmd
}

func backupCmd() *cobra.Command {
	var keyring string

	cmd := &cobra.Command{
		Use:   "backup [<plaintext-file>] <backup-file>",
		Short: "Encrypt a file into a new backup container",
		Example: `  # Seal a file
  backupseal backup accounts.json otp_accounts.json.aes

  # Seal data staged by "restore --keyring"
  backupseal backup --keyring accounts otp_accounts.json.aes`,
		Args: func(_ *cobra.Command, args []string) error {
			if keyring != "" {
				if len(args) != 1 {
					return errors.New("with --keyring only the backup file is expected")
				}
				return nil
			}
			if len(args) != 2 {
				return errors.New("expected a plaintext file and a backup file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				source storage.Storage = storage.NewFileStorage(0)
				handle                 = keyring
			)
			if keyring != "" {
				ks, err := storage.NewUserKeyringStorage()
				if err != nil {
					return err
				}
				source = ks
			} else {
				handle = args[0]
			}
			out := args[len(args)-1]

			plaintext, err := source.Load(ctx, handle)
			if err != nil {
				return fmt.Errorf("reading %s: %w", handle, err)
			}
			defer common.Wipe(plaintext)

			password, err := readPassword(cfg.Backup.EnvVarPassword, true)
			if err != nil {
				return err
			}

			if err := backupseal.NewSealer(&cfg.Backup).SealTo(ctx, storage.NewFileStorage(0), out, string(plaintext), password); err != nil {
				return err
			}

			clog.FromContext(ctx).Infof("Backup written to %s", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyring, "keyring", "", "read the plaintext from the user keyring entry with this name")
	return cmd
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <backup-file>",
		Short: "Print the header of a modern backup container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := storage.NewFileStorage(cfg.Restore.MaxContainerSize).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			header, err := backupseal.Inspect(data, &cfg.Restore)
			if err != nil {
				return errors.New("not a valid backup container")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(header)
		},
	}
	return cmd
}
