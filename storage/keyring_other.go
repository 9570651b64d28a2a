// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package storage

import (
	"context"
	"errors"
)

var errNoKeyring = errors.New("kernel keyring storage is only supported on Linux")

var _ Storage = &KeyringStorage{}

// KeyringStorage is unavailable outside Linux, every method fails.
type KeyringStorage struct{}

// NewKeyringStorage always returns an error on non-Linux platforms.
func NewKeyringStorage() (*KeyringStorage, error) {
	return nil, errNoKeyring
}

// NewUserKeyringStorage always returns an error on non-Linux platforms.
func NewUserKeyringStorage() (*KeyringStorage, error) {
	return nil, errNoKeyring
}

func (k *KeyringStorage) Save(context.Context, string, []byte) error {
	return errNoKeyring
}

func (k *KeyringStorage) Load(context.Context, string) ([]byte, error) {
	return nil, errNoKeyring
}

func (k *KeyringStorage) Delete(context.Context, string) error {
	return errNoKeyring
}
