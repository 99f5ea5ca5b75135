// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package cache

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	msalcache "github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Encrypted seals the cache with NaCl secretbox before passing it to an inner accessor. The stored
// form is the random nonce followed by the sealed box.
type Encrypted struct {
	key   *[keySize]byte
	inner msalcache.ExportReplace
	log   *logger.Logger
}

// NewEncrypted returns an Encrypted accessor storing through inner.
func NewEncrypted(key *[keySize]byte, inner msalcache.ExportReplace, log *logger.Logger) (*Encrypted, error) {
	if key == nil {
		return nil, errors.New("encryption key is nil")
	}
	if inner == nil {
		return nil, errors.New("inner cache accessor is nil")
	}
	return &Encrypted{key: key, inner: inner, log: log}, nil
}

// Export seals MSAL's cache and writes it through the inner accessor.
func (e *Encrypted) Export(ctx context.Context, cache msalcache.Marshaler, hints msalcache.ExportHints) error {
	plain, err := cache.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling token cache: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, e.key)
	return e.inner.Export(ctx, &fixedMarshaler{val: sealed}, hints)
}

// Replace reads through the inner accessor and opens the sealed cache. Data that cannot be opened,
// for example because the key changed, is ignored and leaves MSAL's cache empty.
func (e *Encrypted) Replace(ctx context.Context, cache msalcache.Unmarshaler, hints msalcache.ReplaceHints) error {
	capture := &fixedMarshaler{}
	if err := e.inner.Replace(ctx, capture, hints); err != nil {
		return err
	}
	if len(capture.val) == 0 {
		return nil
	}
	if len(capture.val) < nonceSize+secretbox.Overhead {
		e.log.Log(ctx, logger.Warn, "encrypted token cache is truncated, ignoring it", "bytes", len(capture.val))
		return nil
	}
	var nonce [nonceSize]byte
	copy(nonce[:], capture.val[:nonceSize])
	plain, ok := secretbox.Open(nil, capture.val[nonceSize:], &nonce, e.key)
	if !ok {
		e.log.Log(ctx, logger.Warn, "failed to decrypt token cache, ignoring it")
		return nil
	}
	return cache.Unmarshal(plain)
}

// LoadOrCreateKey reads a key from path, generating and storing a new random key if the file
// does not exist.
func LoadOrCreateKey(path string) (*[keySize]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != keySize {
			return nil, fmt.Errorf("key file %s holds %d bytes, want %d", path, len(data), keySize)
		}
		key := new([keySize]byte)
		copy(key[:], data)
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading key: %w", err)
	}

	key := new([keySize]byte)
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), cacheDirectoryMode); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, key[:], cacheFileMode); err != nil {
		return nil, fmt.Errorf("writing key: %w", err)
	}
	return key, nil
}
