// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package backupseal

import "github.com/carabiner-dev/backupseal/internal/common"

// Message keys carried by a Failure. Applications map them to localized
// strings, they are the only failure detail exposed outside this module.
const (
	// MessageDecryptionFailed covers every problem with loading the
	// container, the container itself or the password. Wrong password,
	// unreadable file and corrupt file are reported the same way.
	MessageDecryptionFailed = "restore_decryption_failed"
)

var messages = map[string]string{
	MessageDecryptionFailed: "decryption failed",
}

// Result is the outcome of a restore attempt. Exactly one of Plaintext and
// Failure is meaningful: Plaintext is only set when Failure is nil.
type Result struct {
	Plaintext string
	Failure   *Failure
}

// OK returns true when the restore succeeded
func (r *Result) OK() bool {
	return r != nil && r.Failure == nil
}

// Err returns the failure as an error, or nil on success
func (r *Result) Err() error {
	if r == nil || r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Failure describes a failed restore. The underlying classification is kept
// for logging only and cannot be recovered through errors.As or Unwrap.
type Failure struct {
	MessageKey string
	kind       common.Kind
}

func (f *Failure) Error() string {
	if msg, ok := messages[f.MessageKey]; ok {
		return msg
	}
	return f.MessageKey
}

func newFailure(key string, kind common.Kind) *Result {
	return &Result{Failure: &Failure{MessageKey: key, kind: kind}}
}
