// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"github.com/awnumar/memguard"
)

// Key holds derived symmetric key material for the duration of a single
// operation. The bytes are locked in memory where the platform allows it
// and wiped by Destroy.
type Key struct {
	data   []byte
	locked bool
}

// NewKey takes ownership of data. Callers must not keep or reuse the slice.
func NewKey(data []byte) *Key {
	k := &Key{data: data}
	k.locked = lockMemory(data) == nil
	return k
}

// Bytes returns the key material, or nil once the key is destroyed
func (k *Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	return k.data
}

// Len returns the key length in bytes
func (k *Key) Len() int {
	if k == nil {
		return 0
	}
	return len(k.data)
}

// Destroy wipes the key material. It is safe to call more than once.
func (k *Key) Destroy() {
	if k == nil || k.data == nil {
		return
	}
	Wipe(k.data)
	if k.locked {
		unlockMemory(k.data) //nolint:errcheck
		k.locked = false
	}
	k.data = nil
}

// String never prints the key material
func (k *Key) String() string {
	return "[REDACTED KEY]"
}

// GoString keeps %#v from printing the key material either
func (k *Key) GoString() string {
	return k.String()
}

// Wipe overwrites b with zeros
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}

// WipeAll wipes every slice passed
func WipeAll(bufs ...[]byte) {
	for _, b := range bufs {
		Wipe(b)
	}
}
