// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/carabiner-dev/backupseal/internal/common"
)

var _ Storage = &MemoryStorage{}

// MemoryStorage is an in-memory implementation of the Storage interface.
// It stores containers in a map protected by a mutex for thread safety.
type MemoryStorage struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string][]byte),
	}
}

// Save stores a copy of data in memory.
func (m *MemoryStorage) Save(ctx context.Context, handle string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.data[handle]; ok {
		common.Wipe(old)
	}
	m.data[handle] = bytes.Clone(data)
	return nil
}

// Load returns a copy of the container stored under handle.
func (m *MemoryStorage) Load(ctx context.Context, handle string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[handle]
	if !exists {
		return nil, fmt.Errorf("loading %q: %w", handle, ErrNotFound)
	}

	return bytes.Clone(data), nil
}

// Delete wipes and removes a container from memory.
func (m *MemoryStorage) Delete(ctx context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.data[handle]; ok {
		common.Wipe(data)
	}
	delete(m.data, handle)
	return nil
}
