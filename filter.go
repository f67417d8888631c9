// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import "strings"

// entryPredicate reports whether a listed entry is kept.
type entryPredicate func(EntryInfo) bool

// filterEntries applies the listing filters of opts: junk, size, ASCII, then prefix.
func filterEntries(entries []EntryInfo, opts ReaderOptions) []EntryInfo {
	var keep []entryPredicate
	if opts.EnableJunkFilter {
		keep = append(keep, isExtractable)
	}
	if opts.MinEntrySize > 0 {
		keep = append(keep, atLeast(opts.MinEntrySize))
	}
	if opts.FilterASCIIOnly {
		keep = append(keep, hasASCIIPath)
	}
	if under := underPrefix(opts.EntryPathPrefix); under != nil {
		keep = append(keep, under)
	}

	return keepEntries(entries, keep...)
}

// keepEntries returns entries accepted by every predicate; with none it returns entries as is.
func keepEntries(entries []EntryInfo, keep ...entryPredicate) []EntryInfo {
	if len(keep) == 0 {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
next:
	for _, entry := range entries {
		for _, ok := range keep {
			if !ok(entry) {
				continue next
			}
		}

		out = append(out, entry)
	}

	return out
}

// atLeast keeps entries of at least minSize uncompressed bytes.
func atLeast(minSize uint64) entryPredicate {
	return func(e EntryInfo) bool { return e.Uncompressed >= minSize }
}

// hasASCIIPath keeps entries whose path is plain ASCII.
func hasASCIIPath(e EntryInfo) bool {
	return isASCII(e.Path)
}

// isExtractable drops delete records and paths that cannot be written under a root.
func isExtractable(e EntryInfo) bool {
	if e.Deleted {
		return false
	}

	_, err := normalizeExtractEntryPath(e.Path)
	return err == nil
}

// underPrefix matches the prefix itself or anything below it; nil for an empty prefix.
func underPrefix(prefix string) entryPredicate {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return nil
	}

	return func(e EntryInfo) bool {
		p := NormalizePath(e.Path)
		rest, found := strings.CutPrefix(p, prefix)
		return found && (rest == "" || rest[0] == '/')
	}
}
