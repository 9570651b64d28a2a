// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package backupseal

import (
	"encoding/hex"
	"fmt"

	"github.com/carabiner-dev/backupseal/internal/container"
	"github.com/carabiner-dev/backupseal/internal/kdf"
	"github.com/carabiner-dev/backupseal/options"
)

// Header is the public part of a modern container
type Header struct {
	Iterations       uint32 `json:"iterations"`
	Salt             string `json:"salt"`
	CiphertextLength int    `json:"ciphertext_length"`
	// IterationsAccepted reports whether a restore with opts would accept the
	// iteration count
	IterationsAccepted bool `json:"iterations_accepted"`
}

// Inspect parses the header of a modern container without deriving any key.
// A nil opts checks the iteration count against the default bounds.
func Inspect(data []byte, opts *options.Restorer) (*Header, error) {
	if opts == nil {
		opts = options.DefaultRestorer
	}

	m, err := container.ParseModern(data)
	if err != nil {
		return nil, fmt.Errorf("parsing container: %w", err)
	}

	bounds := kdf.Bounds{Min: opts.MinIterations, Max: opts.MaxIterations}
	return &Header{
		Iterations:         m.Iterations,
		Salt:               hex.EncodeToString(m.Salt),
		CiphertextLength:   len(m.Ciphertext),
		IterationsAccepted: bounds.Check(m.Iterations) == nil,
	}, nil
}
