// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package storage exposes the interface backupseal uses to load and save
// backup containers. The handle is opaque to backupseal: a path for the
// file driver, any name for the in-memory and keyring drivers.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a handle does not resolve to a container
var ErrNotFound = errors.New("backup not found")

// ErrTooLarge is returned when a container exceeds the driver's size cap
var ErrTooLarge = errors.New("backup exceeds maximum size")

// Storage loads and saves raw backup buffers. Implementations do no
// cryptography, they move opaque bytes.
type Storage interface {
	// Load reads the full container referenced by handle
	Load(context.Context, string) ([]byte, error)

	// Save persists data under handle, replacing any previous content
	Save(context.Context, string, []byte) error

	// Delete removes the container referenced by handle
	Delete(context.Context, string) error
}
