// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package backupseal

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/chainguard-dev/clog"

	"github.com/carabiner-dev/backupseal/internal/aead"
	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/container"
	"github.com/carabiner-dev/backupseal/internal/kdf"
	"github.com/carabiner-dev/backupseal/options"
	"github.com/carabiner-dev/backupseal/storage"
)

// Sealer produces modern backup containers.
type Sealer struct {
	options *options.Sealer
}

// NewSealer creates a new sealer. A nil opts uses the defaults.
func NewSealer(opts *options.Sealer) *Sealer {
	if opts == nil {
		opts = options.DefaultSealer
	}
	return &Sealer{
		options: opts,
	}
}

// Seal encrypts plaintext into a modern container keyed from password.
// Like Restore, it takes ownership of password and wipes it.
func (s *Sealer) Seal(ctx context.Context, plaintext string, password []byte) ([]byte, error) {
	defer common.Wipe(password)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	iterations, err := s.pickIterations()
	if err != nil {
		return nil, err
	}

	// A fresh salt per container, it is also the GCM nonce
	salt, err := aead.Random(container.SaltLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := kdf.DeriveModern(password, salt, iterations, kdf.Policy{
		Bounds: kdf.Bounds{
			Min: s.options.MinBackupIterations,
			Max: s.options.MaxBackupIterations,
		},
		AllowEmptyPassword: s.options.AllowEmptyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	// Wipe out the key from memory when we are done
	defer key.Destroy()

	buf := []byte(plaintext)
	defer common.Wipe(buf)

	ciphertext, err := aead.Seal(key, salt, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt backup: %w", err)
	}

	data, err := container.MarshalModern(iterations, salt, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize container: %w", err)
	}

	clog.FromContext(ctx).Debugf("Sealed %d byte backup with %d iterations", len(buf), iterations)
	return data, nil
}

// SealTo seals plaintext and saves the container to store under handle
func (s *Sealer) SealTo(ctx context.Context, store storage.Storage, handle, plaintext string, password []byte) error {
	data, err := s.Seal(ctx, plaintext, password)
	if err != nil {
		return err
	}

	if err := store.Save(ctx, handle, data); err != nil {
		return fmt.Errorf("failed to store backup: %w", err)
	}

	return nil
}

// pickIterations returns a random count in the configured backup range
func (s *Sealer) pickIterations() (uint32, error) {
	lo, hi := s.options.MinBackupIterations, s.options.MaxBackupIterations
	if lo == 0 || hi < lo {
		return 0, fmt.Errorf("invalid backup iteration range [%d, %d]", lo, hi)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo)+1))
	if err != nil {
		return 0, fmt.Errorf("failed to pick iteration count: %w", err)
	}

	return lo + uint32(n.Int64()), nil
}
