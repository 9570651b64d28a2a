// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package container splits backup buffers into their header fields and
// ciphertext. Two layouts exist:
//
//	modern: [iterations:4 BE][salt:12][ciphertext+tag:>=16]
//	legacy: [nonce:12][ciphertext+tag:>=16]
//
// The salt of a modern container doubles as its GCM nonce. These widths are
// part of the file format, changing them breaks every issued backup.
package container

import (
	"encoding/binary"

	"github.com/carabiner-dev/backupseal/internal/common"
)

const (
	// IntLength is the width of the big-endian iteration count
	IntLength = 4
	// SaltLength is the width of the salt (and nonce) field
	SaltLength = 12
	// NonceLength is the width of the GCM nonce
	NonceLength = 12
	// TagLength is the GCM authentication tag size
	TagLength = 16
	// HeaderLength is the size of the modern header
	HeaderLength = IntLength + SaltLength
	// MinModernLength is the smallest buffer that can be a modern container
	MinModernLength = HeaderLength + TagLength
	// MinLegacyLength is the smallest buffer that can be a legacy container
	MinLegacyLength = NonceLength + TagLength
)

// Modern is a parsed modern container. The slices alias the input buffer.
type Modern struct {
	Iterations uint32
	Salt       []byte
	Ciphertext []byte
}

// Nonce returns the GCM nonce, which is the salt
func (m *Modern) Nonce() []byte {
	return m.Salt
}

// Legacy is a parsed legacy container. The slices alias the input buffer.
type Legacy struct {
	Nonce      []byte
	Ciphertext []byte
}

// ParseModern splits a modern container
func ParseModern(data []byte) (*Modern, error) {
	if len(data) < HeaderLength {
		return nil, common.Errorf(common.KindMalformed,
			"container too short: %d bytes, header needs %d", len(data), HeaderLength)
	}

	ciphertext := data[HeaderLength:]
	if len(ciphertext) < TagLength {
		return nil, common.Errorf(common.KindMalformed,
			"ciphertext too short: %d bytes, need at least %d", len(ciphertext), TagLength)
	}

	return &Modern{
		Iterations: binary.BigEndian.Uint32(data[:IntLength]),
		Salt:       data[IntLength:HeaderLength],
		Ciphertext: ciphertext,
	}, nil
}

// ParseLegacy splits a legacy container
func ParseLegacy(data []byte) (*Legacy, error) {
	if len(data) < MinLegacyLength {
		return nil, common.Errorf(common.KindMalformed,
			"legacy container too short: %d bytes, need at least %d", len(data), MinLegacyLength)
	}

	return &Legacy{
		Nonce:      data[:NonceLength],
		Ciphertext: data[NonceLength:],
	}, nil
}

// MarshalModern serializes a modern container
func MarshalModern(iterations uint32, salt, ciphertext []byte) ([]byte, error) {
	if len(salt) != SaltLength {
		return nil, common.Errorf(common.KindMalformed,
			"invalid salt length %d; want %d", len(salt), SaltLength)
	}
	if len(ciphertext) < TagLength {
		return nil, common.Errorf(common.KindMalformed,
			"ciphertext too short: %d bytes, need at least %d", len(ciphertext), TagLength)
	}

	buf := make([]byte, HeaderLength+len(ciphertext))
	binary.BigEndian.PutUint32(buf[:IntLength], iterations)
	copy(buf[IntLength:HeaderLength], salt)
	copy(buf[HeaderLength:], ciphertext)

	return buf, nil
}
