// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/carabiner-dev/backupseal/internal/common"
)

// readPassword returns the password from envVar or asks for it. With
// confirm set the password must be typed twice.
func readPassword(envVar string, confirm bool) ([]byte, error) {
	if envVar != "" {
		if pw, ok := os.LookupEnv(envVar); ok {
			return []byte(pw), nil
		}
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		// Read a single line from a pipe
		line, err := bufio.NewReader(os.Stdin).ReadBytes('\n')
		if err != nil && len(line) == 0 {
			return nil, fmt.Errorf("reading password from stdin: %w", err)
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}

	pw, err := prompt(fd, "Password: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return pw, nil
	}

	again, err := prompt(fd, "Confirm password: ")
	if err != nil {
		common.Wipe(pw)
		return nil, err
	}
	return confirmPassword(pw, again)
}

// confirmPassword returns pw when both entries match. again is always
// wiped, pw too when they differ.
func confirmPassword(pw, again []byte) ([]byte, error) {
	if !bytes.Equal(pw, again) {
		common.WipeAll(pw, again)
		return nil, errors.New("passwords do not match")
	}
	common.Wipe(again)
	return pw, nil
}

func prompt(fd int, label string) ([]byte, error) {
	fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}
