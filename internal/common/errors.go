// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"errors"
	"fmt"
)

// Kind classifies why a restore attempt failed. The kind is used for
// diagnostics only, it is never shown to the person restoring the backup.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMalformed means the buffer is too short for the declared format
	// or the ciphertext cannot even hold the authentication tag.
	KindMalformed
	// KindKeyDerivation means the derivation parameters were rejected.
	KindKeyDerivation
	// KindAuthentication means the GCM tag did not verify. Wrong password,
	// tampered data and the wrong format flag all end up here.
	KindAuthentication
	// KindEncoding means the authenticated plaintext is not valid UTF-8.
	KindEncoding
	// KindCanceled means the context was done before the restore finished.
	KindCanceled
	// KindStorage means the container could not be loaded or saved.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed container"
	case KindKeyDerivation:
		return "key derivation"
	case KindAuthentication:
		return "authentication"
	case KindEncoding:
		return "encoding"
	case KindCanceled:
		return "canceled"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified error raised by the restore pipeline
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds a classified error with a formatted cause
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a classified error unless it already carries a kind
func Classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind carried by err, or KindUnknown
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err was classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
