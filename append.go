// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Append adds inputs to an existing archive in place.
// New payloads overwrite the old index; a fresh index and footer follow them and the stale tail is truncated.
// Version, mount point, path hash seed and compression table of the archive are kept.
func Append(ctx context.Context, path string, inputs []Input, opts AppendOptions) (*PackResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	plan, err := preparePackPlan(inputs)
	if err != nil {
		return nil, err
	}

	backupPath := path + ".bak"
	if opts.BackupKeep > 0 {
		if err := prepareBackupSlot(backupPath, opts.BackupKeep); err != nil {
			return nil, err
		}
		if err := copyFile(path, backupPath); err != nil {
			return nil, fmt.Errorf("backup archive: %w", err)
		}
	}

	res, err := appendInPlace(ctx, path, plan, opts)
	if err != nil && opts.BackupKeep > 0 {
		if rollbackErr := rollbackFromBackup(path, backupPath); rollbackErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %w)", err, rollbackErr)
		}
	}

	return res, err
}

// appendInPlace opens path read-write and appends plan after the existing payloads.
func appendInPlace(ctx context.Context, path string, plan []Input, opts AppendOptions) (*PackResult, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open pak: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	r, err := NewReader(f, fi.Size(), opts.Reader)
	if err != nil {
		return nil, fmt.Errorf("parse pak: %w", err)
	}

	if !opts.Replace {
		for _, in := range plan {
			if _, exists := r.index.Get(in.Path); exists {
				return nil, fmt.Errorf("%w: %q already exists", ErrDuplicateEntryPath, in.Path)
			}
		}
	}

	packOpts := opts.PackOptions
	packOpts.applyDefaults()

	w, err := r.ToWriter(f, packOpts.Writer)
	if err != nil {
		return nil, err
	}

	res, err := writePackPlan(ctx, w, plan, packOpts)
	if err != nil {
		return nil, err
	}

	if err := f.Truncate(int64(w.Position())); err != nil { //nolint:gosec // bounded by stream size
		return nil, fmt.Errorf("truncate pak: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync pak: %w", err)
	}

	return res, nil
}

// copyFile copies src to a new dst file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// prepareBackupSlot rotates existing backup generations so keep generations remain after the new one.
func prepareBackupSlot(backupPath string, keep int) error {
	switch {
	case keep <= 1:
		return removeIfExists(backupPath)
	default:
		oldest := fmt.Sprintf("%s.%d", backupPath, keep-1)
		if err := removeIfExists(oldest); err != nil {
			return err
		}

		for i := keep - 2; i >= 1; i-- {
			from := fmt.Sprintf("%s.%d", backupPath, i)
			to := fmt.Sprintf("%s.%d", backupPath, i+1)
			if err := renameIfExists(from, to); err != nil {
				return err
			}
		}

		return renameIfExists(backupPath, backupPath+".1")
	}
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}

// rollbackFromBackup restores a copy of the backup over a failed append.
func rollbackFromBackup(path string, backupPath string) error {
	if err := copyFile(backupPath, path); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	return nil
}
