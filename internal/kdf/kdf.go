// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package kdf derives the AES keys used by backup containers.
package kdf

import (
	"crypto/sha1" //nolint:gosec // PBKDF2-HMAC-SHA1 is fixed by the container format
	"crypto/sha256"
	"math"

	"golang.org/x/crypto/pbkdf2"

	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/container"
)

// KeySize is the derived key length, AES-256
const KeySize = 32

// pbkdf2Key is swapped in tests to observe when derivation actually runs
var pbkdf2Key = pbkdf2.Key

// Bounds is the accepted iteration range, both ends inclusive
type Bounds struct {
	Min uint32
	Max uint32
}

// Check returns a key derivation error when iterations fall outside b
func (b Bounds) Check(iterations uint32) error {
	if b.Min == 0 || b.Max < b.Min {
		return common.Errorf(common.KindKeyDerivation, "invalid iteration bounds [%d, %d]", b.Min, b.Max)
	}
	if iterations < b.Min {
		return common.Errorf(common.KindKeyDerivation,
			"iteration count %d below minimum %d", iterations, b.Min)
	}
	if iterations > b.Max || iterations > math.MaxInt32 {
		return common.Errorf(common.KindKeyDerivation,
			"iteration count %d above maximum %d", iterations, b.Max)
	}
	return nil
}

// Policy gathers the checks applied before deriving a key
type Policy struct {
	Bounds             Bounds
	AllowEmptyPassword bool
}

func (p Policy) checkPassword(password []byte) error {
	if len(password) == 0 && !p.AllowEmptyPassword {
		return common.Errorf(common.KindKeyDerivation, "password is required")
	}
	return nil
}

// DeriveModern derives the key of a modern container with PBKDF2-HMAC-SHA1.
// All parameters are validated before any hashing happens.
func DeriveModern(password, salt []byte, iterations uint32, p Policy) (*common.Key, error) {
	if err := p.checkPassword(password); err != nil {
		return nil, err
	}
	if len(salt) != container.SaltLength {
		return nil, common.Errorf(common.KindKeyDerivation,
			"salt must be %d bytes, got %d", container.SaltLength, len(salt))
	}
	if err := p.Bounds.Check(iterations); err != nil {
		return nil, err
	}

	key := pbkdf2Key(password, salt, int(iterations), KeySize, sha1.New)
	if len(key) != KeySize {
		common.Wipe(key)
		return nil, common.Errorf(common.KindKeyDerivation, "derived key has unexpected length %d", len(key))
	}

	return common.NewKey(key), nil
}

// DeriveLegacy derives the key of a legacy container: the SHA-256 digest of
// the password. It exists only to read old backups and must never be used
// to produce new ones.
func DeriveLegacy(password []byte, p Policy) (*common.Key, error) {
	if err := p.checkPassword(password); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(password)
	key := make([]byte, KeySize)
	copy(key, sum[:])
	common.Wipe(sum[:])

	return common.NewKey(key), nil
}
