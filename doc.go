// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package backupseal reads and writes password protected backup containers.
//
// A modern container is laid out as
//
//	[iterations:4 BE][salt:12][AES-256-GCM ciphertext+tag]
//
// with the key derived by PBKDF2-HMAC-SHA1 over the salt, which is also the
// GCM nonce. Legacy containers are keyed with SHA-256(password) and carry
// their nonce in the first 12 bytes. They can be restored but never written.
//
// Restores report a single generic failure to the caller no matter what
// went wrong, so that a backup file cannot be used as a password oracle.
package backupseal
