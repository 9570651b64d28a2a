// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

//go:build !linux
// +build !linux

package common

import "fmt"

func lockMemory(_ []byte) error {
	return fmt.Errorf("memory locking not supported on this platform")
}

func unlockMemory(_ []byte) error {
	return nil
}

// DisableCoreDumps is only implemented on Linux
func DisableCoreDumps() error {
	return fmt.Errorf("disabling core dumps not supported on this platform")
}
