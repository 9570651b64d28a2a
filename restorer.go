// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package backupseal

import (
	"context"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"

	"github.com/carabiner-dev/backupseal/internal/aead"
	"github.com/carabiner-dev/backupseal/internal/common"
	"github.com/carabiner-dev/backupseal/internal/kdf"
	"github.com/carabiner-dev/backupseal/options"
	"github.com/carabiner-dev/backupseal/storage"
)

// Restorer decrypts backup containers.
//
// A Restorer holds no mutable state, a single instance can serve any number
// of concurrent restores.
type Restorer struct {
	options *options.Restorer
}

// NewRestorer creates a new restorer. A nil opts uses the defaults.
func NewRestorer(opts *options.Restorer) *Restorer {
	if opts == nil {
		opts = options.DefaultRestorer
	}
	return &Restorer{
		options: opts,
	}
}

func (r *Restorer) policy() kdf.Policy {
	return kdf.Policy{
		Bounds: kdf.Bounds{
			Min: r.options.MinIterations,
			Max: r.options.MaxIterations,
		},
		AllowEmptyPassword: r.options.AllowEmptyPassword,
	}
}

// Restore decrypts data with password using the given format.
//
// Restore takes ownership of password and wipes it before returning. It
// never panics or returns partial plaintext: any problem yields a Result
// whose Failure carries MessageDecryptionFailed.
func (r *Restorer) Restore(ctx context.Context, data, password []byte, format Format) *Result {
	defer common.Wipe(password)

	plaintext, err := r.decrypt(ctx, data, password, format)
	if err != nil {
		res := newFailure(MessageDecryptionFailed, common.KindOf(err))
		clog.FromContext(ctx).Debugf("Restore of %s container failed (%s): %v", format, res.Failure.kind, err)
		return res
	}

	clog.FromContext(ctx).Debugf("Restored %s container", format)
	return &Result{Plaintext: plaintext}
}

// RestoreFrom loads the container from store and restores it
func (r *Restorer) RestoreFrom(ctx context.Context, store storage.Storage, handle string, password []byte, format Format) *Result {
	data, err := store.Load(ctx, handle)
	if err != nil {
		common.Wipe(password)
		res := newFailure(MessageDecryptionFailed, common.KindStorage)
		clog.FromContext(ctx).Debugf("Loading backup failed (%s): %v", res.Failure.kind, err)
		return res
	}

	return r.Restore(ctx, data, password, format)
}

// RestoreAsync runs Restore in the background. The returned channel
// receives exactly one result and is then closed.
func (r *Restorer) RestoreAsync(ctx context.Context, data, password []byte, format Format) <-chan *Result {
	ch := make(chan *Result, 1)
	go func() {
		defer close(ch)
		ch <- r.Restore(ctx, data, password, format)
	}()
	return ch
}

// decrypt runs the parse, derive and open pipeline. The derived key and the
// plaintext buffer are wiped on every return path.
func (r *Restorer) decrypt(ctx context.Context, data, password []byte, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", common.Classify(common.KindCanceled, err)
	}

	if r.options.MaxContainerSize > 0 && int64(len(data)) > r.options.MaxContainerSize {
		return "", common.Errorf(common.KindMalformed,
			"container of %d bytes exceeds limit of %d", len(data), r.options.MaxContainerSize)
	}

	s, err := strategyFor(format)
	if err != nil {
		return "", err
	}

	parsed, err := s.parse(data)
	if err != nil {
		return "", err
	}

	key, err := s.deriveKey(password, parsed, r.policy())
	if err != nil {
		return "", common.Classify(common.KindKeyDerivation, err)
	}
	defer key.Destroy()

	// Derivation is the slow part, honor a cancellation that arrived meanwhile
	if err := ctx.Err(); err != nil {
		return "", common.Classify(common.KindCanceled, err)
	}

	plaintext, err := aead.Open(key, parsed.nonce, parsed.ciphertext)
	if err != nil {
		return "", common.Classify(common.KindAuthentication, err)
	}
	defer common.Wipe(plaintext)

	if !utf8.Valid(plaintext) {
		return "", common.Errorf(common.KindEncoding, "plaintext is not valid UTF-8")
	}

	return string(plaintext), nil
}
