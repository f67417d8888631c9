// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
)

// maxSegmentLen caps one output path segment.
const maxSegmentLen = 240

// forbiddenNameChars cannot appear in file names on Windows.
const forbiddenNameChars = `<>:"/\|?*`

// deviceNames are Windows device names, compared lowercase without extension.
var deviceNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {}, "clock$": {}, "conin$": {}, "conout$": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizePath rewrites one archive path to deterministic filesystem-safe slash-separated form.
func SanitizePath(entryPath string) (string, error) {
	clean := NormalizePath(entryPath)
	if clean == "" {
		return "", nil
	}

	out, err := sanitizeSegments(clean)
	if err != nil {
		return "", err
	}

	return normalizeExtractEntryPath(out)
}

// pathSanitizer rewrites a batch of paths and keeps the results unique case-insensitively.
type pathSanitizer struct {
	taken map[string]struct{}
	next  map[string]int
}

func newPathSanitizer(n int) *pathSanitizer {
	return &pathSanitizer{
		taken: make(map[string]struct{}, n),
		next:  make(map[string]int, n),
	}
}

// sanitize rewrites one archive entry path.
// Paths that fail extract normalization are still sanitized segment by segment.
func (s *pathSanitizer) sanitize(entryPath string) (string, error) {
	rel, err := normalizeExtractEntryPath(entryPath)
	if err != nil {
		rel = strings.ReplaceAll(entryPath, `\`, `/`)
	}

	out, err := sanitizeSegments(rel)
	if err != nil {
		return "", err
	}

	if out, err = s.claim(out); err != nil {
		return "", err
	}

	return normalizeExtractEntryPath(out)
}

// claim reserves name, appending "~N" to the base name on a case-insensitive collision.
func (s *pathSanitizer) claim(name string) (string, error) {
	key := strings.ToLower(name)
	if _, busy := s.taken[key]; !busy {
		s.taken[key] = struct{}{}
		return name, nil
	}

	dir, base := path.Split(name)
	for n := max(s.next[key], 2); n < 1_000_000; n++ {
		candidate := dir + numberedName(base, n)
		ck := strings.ToLower(candidate)
		if _, busy := s.taken[ck]; busy {
			continue
		}

		s.taken[ck] = struct{}{}
		s.next[key] = n + 1
		return candidate, nil
	}

	return "", ErrInvalidExtractPath
}

// sanitizeOutputNames returns a copy of entries with filesystem-safe unique paths.
func sanitizeOutputNames(entries []EntryInfo) ([]EntryInfo, error) {
	s := newPathSanitizer(len(entries))
	out := make([]EntryInfo, len(entries))
	for i, entry := range entries {
		name, err := s.sanitize(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("sanitize path %s: %w", entry.Path, err)
		}

		entry.Path = name
		out[i] = entry
	}

	return out, nil
}

// sanitizeSegments sanitizes every non-empty segment of a slash path.
func sanitizeSegments(rel string) (string, error) {
	var b strings.Builder
	for seg := range strings.SplitSeq(rel, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" || seg == "." {
			continue
		}

		safe, err := sanitizeSegment(seg)
		if err != nil {
			return "", err
		}

		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(safe)
	}

	if b.Len() == 0 {
		return "_", nil
	}

	return b.String(), nil
}

// sanitizeSegment makes one name safe on Windows, macOS and Linux.
func sanitizeSegment(seg string) (string, error) {
	if seg == ".." {
		return "_", nil
	}

	safe := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), unicode.In(r, unicode.Cf), r == unicode.ReplacementChar:
			return '_'
		case strings.ContainsRune(forbiddenNameChars, r):
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(seg))

	// Windows drops trailing dots and spaces.
	safe = strings.TrimRight(safe, ". ")
	switch {
	case safe == "":
		return "_", nil
	case isDeviceName(safe):
		safe = "_" + safe
	}

	return hashShorten(safe, maxSegmentLen), nil
}

// isDeviceName reports whether name, ignoring any extension, is a Windows device.
func isDeviceName(name string) bool {
	stem, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(name)), ".")
	_, ok := deviceNames[strings.TrimRight(stem, " ")]
	return ok
}

// numberedName inserts "~n" before the extension, staying within maxSegmentLen.
func numberedName(name string, n int) string {
	ext := path.Ext(name)
	tag := "~" + strconv.Itoa(n)
	stem := hashShorten(strings.TrimSuffix(name, ext), max(maxSegmentLen-len(ext)-len(tag), 1))

	return stem + tag + ext
}

// hashShorten cuts value to limit bytes, ending in "~" plus an FNV-32a hash of the full value.
func hashShorten(value string, limit int) string {
	switch {
	case len(value) <= limit:
		return value
	case limit <= 10:
		return value[:limit]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	tail := fmt.Sprintf("~%08x", h.Sum32())

	return value[:max(limit-len(tail), 1)] + tail
}
