// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath returns the canonical relative form of a user or archive path:
// forward slashes, no leading "./" or "/", no trailing "/", with "." and ".." resolved.
// Paths that clean to the root return "".
func NormalizePath(raw string) string {
	cleaned := path.Clean("/" + strings.TrimLeft(slashPath(raw), "/"))
	return strings.TrimPrefix(cleaned, "/")
}

// JoinMountPath prefixes an entry path with the archive mount point.
func JoinMountPath(mountPoint, entryPath string) string {
	switch {
	case mountPoint == "":
		return entryPath
	case strings.HasSuffix(mountPoint, "/"):
		return mountPoint + entryPath
	default:
		return mountPoint + "/" + entryPath
	}
}

// slashPath trims spaces, converts backslashes and drops one leading "./".
func slashPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	return strings.TrimPrefix(p, "./")
}

// archiveEntryPath normalizes a pack input path and rejects empty or NUL-bearing results.
func archiveEntryPath(raw string) (string, error) {
	p := NormalizePath(raw)
	if p == "" || strings.IndexByte(p, 0) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, raw)
	}

	return p, nil
}
