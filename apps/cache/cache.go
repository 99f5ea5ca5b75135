// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package cache persists the MSAL token cache between runs so a signed-in user stays signed in.

The data stored and extracted represents the entire cache and is opaque: there are no guarantees
on its format. File stores it on disk behind a file lock so several processes can share it, and
Encrypted seals it before handing it to another accessor.
*/
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	msalcache "github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
	"github.com/gofrs/flock"
)

const (
	cacheFileMode      = 0600
	cacheDirectoryMode = 0700
	lockRetryDelay     = 50 * time.Millisecond
)

var (
	_ msalcache.ExportReplace = (*File)(nil)
	_ msalcache.ExportReplace = (*Encrypted)(nil)
)

// File is a msalcache.ExportReplace backed by a single file. Reads and writes hold an
// exclusive lock on a sibling ".lock" file.
type File struct {
	path string
	log  *logger.Logger
}

// NewFile returns a File storing the cache at path, creating its directory if needed.
func NewFile(path string, log *logger.Logger) (*File, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), cacheDirectoryMode); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &File{path: path, log: log}, nil
}

// Path is the location of the cache file.
func (f *File) Path() string {
	return f.path
}

// Replace loads the file into MSAL's cache. A missing file leaves the cache empty.
func (f *File) Replace(ctx context.Context, cache msalcache.Unmarshaler, hints msalcache.ReplaceHints) error {
	var data []byte
	err := f.withLock(ctx, func() error {
		var err error
		data, err = os.ReadFile(f.path)
		return err
	})
	if errors.Is(err, os.ErrNotExist) {
		f.log.Log(ctx, logger.Debug, "no persisted token cache", "path", f.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading token cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	return cache.Unmarshal(data)
}

// Export writes MSAL's cache to the file.
func (f *File) Export(ctx context.Context, cache msalcache.Marshaler, hints msalcache.ExportHints) error {
	data, err := cache.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling token cache: %w", err)
	}
	err = f.withLock(ctx, func() error {
		return os.WriteFile(f.path, data, cacheFileMode)
	})
	if err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}
	f.log.Log(ctx, logger.Debug, "persisted token cache", "path", f.path, "bytes", len(data))
	return nil
}

// Clear deletes the cache file.
func (f *File) Clear(ctx context.Context) error {
	err := f.withLock(ctx, func() error {
		return os.Remove(f.path)
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *File) withLock(ctx context.Context, fn func() error) error {
	fl := flock.New(f.path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("locking %s: lock not acquired", fl.Path())
	}
	defer fl.Unlock()
	return fn()
}

// fixedMarshaler carries already serialized cache bytes between accessors.
type fixedMarshaler struct {
	val []byte
}

func (f *fixedMarshaler) Marshal() ([]byte, error) {
	return f.val, nil
}

func (f *fixedMarshaler) Unmarshal(cache []byte) error {
	f.val = cache
	return nil
}
