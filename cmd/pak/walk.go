// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/woozymasta/pak"
)

// collectInputs walks root and returns one input per regular file, keyed by slash-separated relative path.
func collectInputs(root string) ([]pak.Input, error) {
	var inputs []pak.Input
	err := filepath.WalkDir(root, func(fsPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, fsPath)
		if err != nil {
			return err
		}

		in, err := fileInput(fsPath, filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		inputs = append(inputs, in)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return inputs, nil
}

// fileInput describes one file on disk as a pack input.
func fileInput(fsPath, entryPath string) (pak.Input, error) {
	fi, err := os.Stat(fsPath)
	if err != nil {
		return pak.Input{}, err
	}
	if !fi.Mode().IsRegular() {
		return pak.Input{}, fmt.Errorf("%s is not a regular file", fsPath)
	}

	return pak.Input{
		Path:     entryPath,
		ModTime:  fi.ModTime(),
		SizeHint: fi.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(fsPath) //nolint:gosec // user-selected input
		},
	}, nil
}
