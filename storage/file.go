// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
)

var _ Storage = &FileStorage{}

// FileStorage reads and writes containers on the local filesystem. Handles
// are file paths.
type FileStorage struct {
	// maxSize caps the bytes read by Load, 0 disables the cap
	maxSize int64
}

// NewFileStorage creates a file backed storage driver
func NewFileStorage(maxSize int64) *FileStorage {
	return &FileStorage{maxSize: maxSize}
}

// Load reads the whole file at path
func (f *FileStorage) Load(ctx context.Context, path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("opening %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	var r io.Reader = file
	if f.maxSize > 0 {
		// Read one byte past the cap to detect oversized files
		r = io.LimitReader(file, f.maxSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("reading %s: %w (limit %d bytes)", path, ErrTooLarge, f.maxSize)
	}

	clog.FromContext(ctx).Debugf("Loaded %d bytes from %s", len(data), path)
	return data, nil
}

// Save writes data to path atomically with owner-only permissions
func (f *FileStorage) Save(ctx context.Context, path string, data []byte) error {
	// Write to temp file then rename (atomic)
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".backupseal-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()    //nolint:errcheck,gosec
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()    //nolint:errcheck,gosec
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Make file read/write for owner only
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("failed to rename file: %w", err)
	}

	clog.FromContext(ctx).Debugf("Wrote %d bytes to %s", len(data), path)
	return nil
}

// Delete removes the file at path
func (f *FileStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
