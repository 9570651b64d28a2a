// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package storage

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// keyringMaxPayload is the kernel limit for "user" key payloads
const keyringMaxPayload = 1024 * 1024

const (
	// possessor: all permissions
	permPossessor = 0x3f000000
	// possessor and owning user: all permissions
	permPossessorUser = 0x3f3f0000
)

// Ensure the driver implements the storage interface
var _ Storage = &KeyringStorage{}

// KeyringStorage keeps buffers in a Linux kernel keyring so they can be
// staged without touching the filesystem.
type KeyringStorage struct {
	ring int
	perm uint32
}

// NewKeyringStorage creates a new kernel keyring storage backend.
// It uses the process keyring (KEY_SPEC_PROCESS_KEYRING) which is
// isolated per-process and vanishes when the process exits.
func NewKeyringStorage() (*KeyringStorage, error) {
	return newKeyringStorage(unix.KEY_SPEC_PROCESS_KEYRING, permPossessor)
}

// NewUserKeyringStorage creates a keyring backend on the user keyring
// (KEY_SPEC_USER_KEYRING). Entries outlive the process and are readable by
// any process running as the same user.
func NewUserKeyringStorage() (*KeyringStorage, error) {
	return newKeyringStorage(unix.KEY_SPEC_USER_KEYRING, permPossessorUser)
}

func newKeyringStorage(ring int, perm uint32) (*KeyringStorage, error) {
	// Request the keyring, creating it if it doesn't exist
	if _, err := unix.KeyctlGetKeyringID(ring, true); err != nil {
		return nil, fmt.Errorf("failed to access/create keyring: %w", err)
	}

	return &KeyringStorage{ring: ring, perm: perm}, nil
}

// Save stores data in the kernel keyring under handle.
func (k *KeyringStorage) Save(ctx context.Context, handle string, data []byte) error {
	if len(data) > keyringMaxPayload {
		return fmt.Errorf("keyring payload of %d bytes: %w", len(data), ErrTooLarge)
	}

	// Drop any existing key first so we always create a fresh one
	if existingKeyID, err := unix.KeyctlSearch(k.ring, "user", handle, 0); err == nil {
		//nolint:errcheck // The add below replaces the payload anyway
		_, _ = unix.KeyctlInt(unix.KEYCTL_UNLINK, existingKeyID, k.ring, 0, 0)
	}

	keyID, err := unix.AddKey("user", handle, data, k.ring)
	if err != nil {
		return fmt.Errorf("adding key to keyring: %w", err)
	}

	if err := unix.KeyctlSetperm(keyID, k.perm); err != nil {
		return fmt.Errorf("setting key permissions: %w", err)
	}

	return nil
}

// Load reads the buffer stored under handle.
func (k *KeyringStorage) Load(ctx context.Context, handle string) ([]byte, error) {
	keyID, err := unix.KeyctlSearch(k.ring, "user", handle, 0)
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", handle, ErrNotFound)
	}

	// First, get the size of the key data
	size, err := unix.KeyctlBuffer(unix.KEYCTL_READ, keyID, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("getting key size: %w", err)
	}

	buf := make([]byte, size)
	n, err := unix.KeyctlBuffer(unix.KEYCTL_READ, keyID, buf, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read key from keyring: %w", err)
	}
	if n < len(buf) {
		buf = buf[:n]
	}

	return buf, nil
}

// Delete removes the buffer stored under handle.
func (k *KeyringStorage) Delete(ctx context.Context, handle string) error {
	keyID, err := unix.KeyctlSearch(k.ring, "user", handle, 0)
	if err != nil {
		//nolint:nilerr // Key not found is not an error
		return nil
	}

	if _, err := unix.KeyctlInt(unix.KEYCTL_UNLINK, keyID, k.ring, 0, 0); err != nil {
		return fmt.Errorf("unlinking key from keyring: %w", err)
	}

	return nil
}
