// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"io"
	"os"
)

// ReadInfo opens a pak and returns archive-level metadata.
func ReadInfo(path string, opts ReaderOptions) (ArchiveInfo, error) {
	return withPakFile(path, func(f *os.File, size int64) (ArchiveInfo, error) {
		return ReadInfoFromReaderAt(f, size, opts)
	})
}

// ReadInfoFromReaderAt parses footer and index from ra and returns archive metadata.
func ReadInfoFromReaderAt(ra io.ReaderAt, size int64, opts ReaderOptions) (ArchiveInfo, error) {
	r, err := NewReader(ra, size, opts)
	if err != nil {
		return ArchiveInfo{}, err
	}

	return r.Info(), nil
}

// ListEntries opens a pak and returns filtered entry metadata without reading payloads.
func ListEntries(path string, opts ReaderOptions) ([]EntryInfo, error) {
	return withPakFile(path, func(f *os.File, size int64) ([]EntryInfo, error) {
		return ListEntriesFromReaderAt(f, size, opts)
	})
}

// ListEntriesFromReaderAt parses entry metadata from ra.
func ListEntriesFromReaderAt(ra io.ReaderAt, size int64, opts ReaderOptions) ([]EntryInfo, error) {
	r, err := NewReader(ra, size, opts)
	if err != nil {
		return nil, err
	}

	return r.Entries(), nil
}

// withPakFile runs fn on the opened file and closes it afterwards.
func withPakFile[T any](path string, fn func(*os.File, int64) (T, error)) (T, error) {
	f, size, err := openSized(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer func() { _ = f.Close() }()

	return fn(f, size)
}

// openSized opens path read-only and returns its current size.
func openSized(path string) (*os.File, int64, error) {
	f, err := os.Open(path) //nolint:gosec // caller-selected archive
	if err != nil {
		return nil, 0, fmt.Errorf("open pak: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat pak: %w", err)
	}

	return f, fi.Size(), nil
}
