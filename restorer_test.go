// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package backupseal

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carabiner-dev/backupseal/internal/aead"
	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/container"
	"github.com/carabiner-dev/backupseal/internal/kdf"
	"github.com/carabiner-dev/backupseal/options"
	"github.com/carabiner-dev/backupseal/storage"
)

const testPlaintext = `{"secrets":[]}`

func fixedSalt() []byte {
	return []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b}
}

// fastRestorer accepts low iteration counts to keep tests quick
func fastRestorer(t *testing.T, fns ...options.RestorerOptFn) *Restorer {
	t.Helper()
	opts, err := options.NewRestorer(append([]options.RestorerOptFn{options.WithIterationBounds(1000, 200_000)}, fns...)...)
	require.NoError(t, err)
	return NewRestorer(opts)
}

// sealModern builds a modern container with explicit parameters
func sealModern(t *testing.T, plaintext, password string, iterations uint32, salt []byte) []byte {
	t.Helper()
	key, err := kdf.DeriveModern([]byte(password), salt, iterations, kdf.Policy{
		Bounds:             kdf.Bounds{Min: 1, Max: iterations},
		AllowEmptyPassword: true,
	})
	require.NoError(t, err)
	defer key.Destroy()

	ciphertext, err := aead.Seal(key, salt, []byte(plaintext))
	require.NoError(t, err)

	data, err := container.MarshalModern(iterations, salt, ciphertext)
	require.NoError(t, err)
	return data
}

// sealLegacy builds an old style container: SHA-256(password) key and the
// nonce prepended to the ciphertext
func sealLegacy(t *testing.T, plaintext, password string) []byte {
	t.Helper()
	key, err := kdf.DeriveLegacy([]byte(password), kdf.Policy{})
	require.NoError(t, err)
	defer key.Destroy()

	nonce, err := aead.Random(container.NonceLength)
	require.NoError(t, err)

	ciphertext, err := aead.Seal(key, nonce, []byte(plaintext))
	require.NoError(t, err)

	return append(nonce, ciphertext...)
}

func requireFailure(t *testing.T, res *Result, kind common.Kind) {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.OK(), "expected failure, got plaintext %q", res.Plaintext)
	require.Empty(t, res.Plaintext)
	require.Equal(t, MessageDecryptionFailed, res.Failure.MessageKey)
	require.Equal(t, kind, res.Failure.kind, "got kind %s", res.Failure.kind)
}

func TestRestoreConcreteScenario(t *testing.T) {
	data := sealModern(t, testPlaintext, "correct horse", 150000, fixedSalt())
	r := NewRestorer(nil)

	res := r.Restore(context.Background(), data, []byte("correct horse"), FormatModern)
	require.True(t, res.OK(), "restore failed: %v", res.Err())
	assert.Equal(t, testPlaintext, res.Plaintext)
	assert.NoError(t, res.Err())

	res = r.Restore(context.Background(), data, []byte("wrong horse"), FormatModern)
	requireFailure(t, res, common.KindAuthentication)
	assert.Equal(t, "decryption failed", res.Err().Error())
}

// Containers built with an independent PBKDF2, SHA-256 and AES-GCM
// implementation. Modern: "correct horse", 150000 iterations, fixedSalt.
// Legacy: "correct horse", nonce a0..ab.
const (
	knownModernContainer = "000249f0101112131415161718191a1b" +
		"8b2774f7e68d7a89614c1bdc7976cfbfaae9c727b2e550a95072c8b002e6"
	knownLegacyContainer = "a0a1a2a3a4a5a6a7a8a9aaab" +
		"9a881e2cbb6da1caa5eb6ada3ef58367fbe252e06ed1aee40c4dd4caf170"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestRestoreKnownContainers(t *testing.T) {
	r := NewRestorer(nil)

	for name, tc := range map[string]struct {
		data   string
		format Format
	}{
		"modern": {knownModernContainer, FormatModern},
		"legacy": {knownLegacyContainer, FormatLegacy},
	} {
		t.Run(name, func(t *testing.T) {
			res := r.Restore(context.Background(), decodeHex(t, tc.data), []byte("correct horse"), tc.format)
			require.True(t, res.OK(), "restore failed: %v", res.Err())
			require.Equal(t, testPlaintext, res.Plaintext)

			res = r.Restore(context.Background(), decodeHex(t, tc.data), []byte("wrong horse"), tc.format)
			requireFailure(t, res, common.KindAuthentication)
		})
	}
}

func TestSealModernMatchesKnownContainer(t *testing.T) {
	data := sealModern(t, testPlaintext, "correct horse", 150000, fixedSalt())
	require.Equal(t, knownModernContainer, hex.EncodeToString(data))
}

func TestRestoreRoundTrip(t *testing.T) {
	sopts, err := options.NewSealer(options.WithBackupIterations(1000, 2000))
	require.NoError(t, err)
	s := NewSealer(sopts)
	r := fastRestorer(t)

	for _, plaintext := range []string{
		"",
		testPlaintext,
		`[{"secret":"JBSWY3DPEHPK3PXP","label":"ünïcödé ✓"}]`,
		string(bytes.Repeat([]byte("x"), 64*1024)),
	} {
		data, err := s.Seal(context.Background(), plaintext, []byte("correct horse"))
		require.NoError(t, err)

		res := r.Restore(context.Background(), data, []byte("correct horse"), FormatModern)
		require.True(t, res.OK(), "restore failed: %v", res.Err())
		assert.Equal(t, plaintext, res.Plaintext)
	}
}

func TestRestoreWrongPassword(t *testing.T) {
	data := sealModern(t, testPlaintext, "password one", 1000, fixedSalt())
	r := fastRestorer(t)

	for _, pw := range []string{"password two", "password on", "password one ", "Password one"} {
		res := r.Restore(context.Background(), data, []byte(pw), FormatModern)
		requireFailure(t, res, common.KindAuthentication)
	}
}

func TestRestoreTamperedCiphertext(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	r := fastRestorer(t)

	for i := container.HeaderLength; i < len(data); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := bytes.Clone(data)
			tampered[i] ^= 1 << bit

			res := r.Restore(context.Background(), tampered, []byte("pw"), FormatModern)
			requireFailure(t, res, common.KindAuthentication)
		}
	}
}

func TestRestoreTamperedHeader(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	r := fastRestorer(t)

	// Changing the salt changes both the key and the nonce
	tampered := bytes.Clone(data)
	tampered[container.IntLength] ^= 0x01
	requireFailure(t, r.Restore(context.Background(), tampered, []byte("pw"), FormatModern), common.KindAuthentication)

	// A different iteration count inside the bounds derives another key
	tampered = bytes.Clone(data)
	tampered[container.IntLength-1] ^= 0x01
	requireFailure(t, r.Restore(context.Background(), tampered, []byte("pw"), FormatModern), common.KindAuthentication)
}

func TestRestoreShortBuffers(t *testing.T) {
	r := fastRestorer(t)

	for size := 0; size < container.MinModernLength; size++ {
		res := r.Restore(context.Background(), make([]byte, size), []byte("pw"), FormatModern)
		requireFailure(t, res, common.KindMalformed)
	}

	for size := 0; size < container.MinLegacyLength; size++ {
		res := r.Restore(context.Background(), make([]byte, size), []byte("pw"), FormatLegacy)
		requireFailure(t, res, common.KindMalformed)
	}

	requireFailure(t, r.Restore(context.Background(), nil, []byte("pw"), FormatModern), common.KindMalformed)
}

func TestRestoreIterationBounds(t *testing.T) {
	r := fastRestorer(t)

	for _, iterations := range []uint32{0, 999, 200_001, ^uint32(0)} {
		data := make([]byte, container.MinModernLength+8)
		data[0] = byte(iterations >> 24)
		data[1] = byte(iterations >> 16)
		data[2] = byte(iterations >> 8)
		data[3] = byte(iterations)

		res := r.Restore(context.Background(), data, []byte("pw"), FormatModern)
		requireFailure(t, res, common.KindKeyDerivation)
	}
}

func TestRestoreDefaultBoundsRejectHugeIterations(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	// 0xFFFFFFFF iterations would run for hours
	data[0], data[1], data[2], data[3] = 0xFF, 0xFF, 0xFF, 0xFF

	res := NewRestorer(nil).Restore(context.Background(), data, []byte("pw"), FormatModern)
	requireFailure(t, res, common.KindKeyDerivation)
}

func TestRestoreEmptyPassword(t *testing.T) {
	data := sealModern(t, testPlaintext, "", 1000, fixedSalt())

	requireFailure(t, fastRestorer(t).Restore(context.Background(), data, nil, FormatModern), common.KindKeyDerivation)
	requireFailure(t, fastRestorer(t).Restore(context.Background(), data, []byte{}, FormatLegacy), common.KindKeyDerivation)

	res := fastRestorer(t, options.WithAllowEmptyPassword(true)).Restore(context.Background(), data, nil, FormatModern)
	require.True(t, res.OK(), "restore failed: %v", res.Err())
	assert.Equal(t, testPlaintext, res.Plaintext)
}

func TestRestoreInvalidUTF8(t *testing.T) {
	data := sealModern(t, string([]byte{0xff, 0xfe, 0xfd}), "pw", 1000, fixedSalt())

	res := fastRestorer(t).Restore(context.Background(), data, []byte("pw"), FormatModern)
	requireFailure(t, res, common.KindEncoding)
}

func TestRestoreLegacy(t *testing.T) {
	data := sealLegacy(t, testPlaintext, "old password")
	r := fastRestorer(t)

	res := r.Restore(context.Background(), data, []byte("old password"), FormatLegacy)
	require.True(t, res.OK(), "restore failed: %v", res.Err())
	assert.Equal(t, testPlaintext, res.Plaintext)

	requireFailure(t, r.Restore(context.Background(), data, []byte("new password"), FormatLegacy), common.KindAuthentication)
}

func TestRestoreLegacyThroughModernPathFails(t *testing.T) {
	data := sealLegacy(t, testPlaintext, "old password")
	res := NewRestorer(nil).Restore(context.Background(), data, []byte("old password"), FormatModern)
	require.False(t, res.OK())
	assert.Empty(t, res.Plaintext)
}

func TestRestoreModernThroughLegacyPathFails(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	res := fastRestorer(t).Restore(context.Background(), data, []byte("pw"), FormatLegacy)
	requireFailure(t, res, common.KindAuthentication)
}

func TestRestoreUnknownFormat(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	res := fastRestorer(t).Restore(context.Background(), data, []byte("pw"), Format(42))
	requireFailure(t, res, common.KindMalformed)
}

func TestRestoreMaxContainerSize(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	r := fastRestorer(t, options.WithMaxContainerSize(int64(len(data)-1)))

	requireFailure(t, r.Restore(context.Background(), data, []byte("pw"), FormatModern), common.KindMalformed)
}

func TestRestoreCanceled(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := fastRestorer(t).Restore(ctx, data, []byte("pw"), FormatModern)
	requireFailure(t, res, common.KindCanceled)
}

func TestRestoreWipesPassword(t *testing.T) {
	data := sealModern(t, testPlaintext, "correct horse", 1000, fixedSalt())
	r := fastRestorer(t)

	password := []byte("correct horse")
	res := r.Restore(context.Background(), data, password, FormatModern)
	require.True(t, res.OK())
	assert.Equal(t, make([]byte, len("correct horse")), password)

	password = []byte("wrong horse")
	res = r.Restore(context.Background(), data, password, FormatModern)
	require.False(t, res.OK())
	assert.Equal(t, make([]byte, len("wrong horse")), password)

	password = []byte("pw")
	res = r.Restore(context.Background(), []byte{1, 2}, password, FormatModern)
	require.False(t, res.OK())
	assert.Equal(t, []byte{0, 0}, password)
}

func TestFailureHidesCause(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	r := fastRestorer(t)

	wrongPw := r.Restore(context.Background(), data, []byte("nope"), FormatModern)
	corrupt := r.Restore(context.Background(), data[:10], []byte("pw"), FormatModern)

	require.False(t, wrongPw.OK())
	require.False(t, corrupt.OK())

	// Both look the same from the outside
	assert.Equal(t, wrongPw.Failure.MessageKey, corrupt.Failure.MessageKey)
	assert.Equal(t, wrongPw.Err().Error(), corrupt.Err().Error())
	assert.Nil(t, errors.Unwrap(wrongPw.Err()))

	var cerr *common.Error
	assert.False(t, errors.As(wrongPw.Err(), &cerr))
}

func TestRestoreFrom(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	r := fastRestorer(t)

	require.NoError(t, store.Save(ctx, "backup", sealModern(t, testPlaintext, "pw", 1000, fixedSalt())))

	res := r.RestoreFrom(ctx, store, "backup", []byte("pw"), FormatModern)
	require.True(t, res.OK(), "restore failed: %v", res.Err())
	assert.Equal(t, testPlaintext, res.Plaintext)

	password := []byte("pw")
	res = r.RestoreFrom(ctx, store, "missing", password, FormatModern)
	require.False(t, res.OK())
	// An unreadable backup looks like any other failed restore
	assert.Equal(t, MessageDecryptionFailed, res.Failure.MessageKey)
	assert.Equal(t, common.KindStorage, res.Failure.kind)
	assert.Equal(t, []byte{0, 0}, password)

	corrupt := r.Restore(ctx, []byte("short"), []byte("pw"), FormatModern)
	assert.Equal(t, corrupt.Err().Error(), res.Err().Error())
}

func TestRestoreAsync(t *testing.T) {
	data := sealModern(t, testPlaintext, "pw", 1000, fixedSalt())
	r := fastRestorer(t)

	ch := r.RestoreAsync(context.Background(), data, []byte("pw"), FormatModern)
	res, ok := <-ch
	require.True(t, ok)
	require.True(t, res.OK(), "restore failed: %v", res.Err())
	assert.Equal(t, testPlaintext, res.Plaintext)

	// The channel is closed after the single result
	_, ok = <-ch
	assert.False(t, ok)
}

func TestRestoreConcurrent(t *testing.T) {
	r := fastRestorer(t)

	containers := make([][]byte, 8)
	for i := range containers {
		salt := fixedSalt()
		salt[0] = byte(i)
		containers[i] = sealModern(t, testPlaintext, "pw", 1000, salt)
	}

	var wg sync.WaitGroup
	results := make([]*Result, len(containers)*2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pw := "pw"
			if i%2 == 1 {
				pw = "wrong"
			}
			results[i] = r.Restore(context.Background(), containers[i/2], []byte(pw), FormatModern)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if i%2 == 1 {
			assert.False(t, res.OK(), "restore %d should have failed", i)
			continue
		}
		require.True(t, res.OK(), "restore %d failed: %v", i, res.Err())
		assert.Equal(t, testPlaintext, res.Plaintext)
	}
}

func TestFormatFromLegacyFlag(t *testing.T) {
	assert.Equal(t, FormatLegacy, FormatFromLegacyFlag(true))
	assert.Equal(t, FormatModern, FormatFromLegacyFlag(false))
	assert.Equal(t, "modern", FormatModern.String())
	assert.Equal(t, "legacy", FormatLegacy.String())
	assert.Equal(t, "unknown", Format(9).String())
}
