// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package backupseal

import (
	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/container"
	"github.com/carabiner-dev/backupseal/internal/kdf"
)

// Format selects the container layout. It is application state supplied by
// the caller, it is never guessed from the file contents.
type Format int

const (
	// FormatModern is the salted PBKDF2 container
	FormatModern Format = iota
	// FormatLegacy is the old unsalted container, readable but never written
	FormatLegacy
)

// FormatFromLegacyFlag maps the host app's "old format" checkbox to a Format
func FormatFromLegacyFlag(legacy bool) Format {
	if legacy {
		return FormatLegacy
	}
	return FormatModern
}

func (f Format) String() string {
	switch f {
	case FormatModern:
		return "modern"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// sealed is a container split into the parts the cipher needs
type sealed struct {
	iterations uint32
	salt       []byte
	nonce      []byte
	ciphertext []byte
}

// strategy implements one container format
type strategy interface {
	parse(data []byte) (*sealed, error)
	deriveKey(password []byte, s *sealed, p kdf.Policy) (*common.Key, error)
}

type modernFormat struct{}

func (modernFormat) parse(data []byte) (*sealed, error) {
	m, err := container.ParseModern(data)
	if err != nil {
		return nil, err
	}
	return &sealed{
		iterations: m.Iterations,
		salt:       m.Salt,
		nonce:      m.Nonce(),
		ciphertext: m.Ciphertext,
	}, nil
}

func (modernFormat) deriveKey(password []byte, s *sealed, p kdf.Policy) (*common.Key, error) {
	return kdf.DeriveModern(password, s.salt, s.iterations, p)
}

type legacyFormat struct{}

func (legacyFormat) parse(data []byte) (*sealed, error) {
	l, err := container.ParseLegacy(data)
	if err != nil {
		return nil, err
	}
	return &sealed{
		nonce:      l.Nonce,
		ciphertext: l.Ciphertext,
	}, nil
}

func (legacyFormat) deriveKey(password []byte, _ *sealed, p kdf.Policy) (*common.Key, error) {
	return kdf.DeriveLegacy(password, p)
}

func strategyFor(f Format) (strategy, error) {
	switch f {
	case FormatModern:
		return modernFormat{}, nil
	case FormatLegacy:
		return legacyFormat{}, nil
	default:
		return nil, common.Errorf(common.KindMalformed, "unsupported container format %d", int(f))
	}
}
