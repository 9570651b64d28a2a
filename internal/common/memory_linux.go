// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

//go:build linux
// +build linux

package common

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// lockMemory keeps the pages backing b out of swap. Failing to lock is not
// fatal, RLIMIT_MEMLOCK is often tiny for unprivileged users.
func lockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mlock(b); err != nil {
		return fmt.Errorf("locking key memory: %w", err)
	}
	return nil
}

func unlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}

// DisableCoreDumps marks the process as non dumpable and sets the core
// file size limit to zero so a crash cannot write keys or passwords to disk.
func DisableCoreDumps() error {
	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("clearing dumpable flag: %w", err)
	}
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0}); err != nil {
		return fmt.Errorf("setting core limit: %w", err)
	}
	return nil
}
