// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package aead wraps AES-GCM for backup containers.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/container"
)

// newGCM builds the AES-GCM cipher for key
func newGCM(key *common.Key) (cipher.AEAD, error) {
	if key.Len() != 32 {
		return nil, common.Errorf(common.KindKeyDerivation, "aes-gcm requires a 32-byte key, got %d", key.Len())
	}

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

// Open authenticates and decrypts ciphertext. Nothing is returned unless
// the tag verifies.
func Open(key *common.Key, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != container.NonceLength {
		return nil, common.Errorf(common.KindMalformed, "invalid nonce size %d", len(nonce))
	}
	if len(ciphertext) < container.TagLength {
		return nil, common.Errorf(common.KindMalformed,
			"ciphertext too short: %d bytes, need at least %d", len(ciphertext), container.TagLength)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &common.Error{Kind: common.KindAuthentication, Err: err}
	}

	return plaintext, nil
}

// Seal encrypts plaintext under key and nonce
func Seal(key *common.Key, nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != container.NonceLength {
		return nil, fmt.Errorf("invalid nonce size %d", len(nonce))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Random returns n bytes from the system CSPRNG
func Random(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}
