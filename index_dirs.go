// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf16"
)

// FNV-1a 64-bit constants.
const (
	fnv64Offset = 0xcbf29ce484222325
	fnv64Prime  = 0x100000001b3
)

// fnv64Path hashes the lower-cased UTF-16LE form of path with a seeded FNV-1a basis.
func fnv64Path(path string, seed uint64) uint64 {
	hash := uint64(fnv64Offset) + seed
	for _, unit := range utf16.Encode([]rune(strings.ToLower(path))) {
		hash = (hash ^ uint64(unit&0xff)) * fnv64Prime
		hash = (hash ^ uint64(unit>>8)) * fnv64Prime
	}

	return hash
}

// splitPathChild splits path into parent directory (with trailing slash) and child name.
// Root and empty paths have no parent.
func splitPathChild(path string) (parent, child string, ok bool) {
	if path == "" || path == "/" {
		return "", "", false
	}

	path = strings.TrimSuffix(path, "/")
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "/", path, true
	}

	return path[:i+1], path[i+1:], true
}

// encodePathHashIndex builds the path-hash section: count, (fnv64, ref) pairs and a zero tail.
func encodePathHashIndex(paths []string, refs []int32, seed uint64) []byte {
	var enc encoder
	enc.U32(uint32(len(paths))) //nolint:gosec // bounded by caller
	for i, p := range paths {
		enc.U64(fnv64Path(p, seed))
		enc.I32(refs[i])
	}
	enc.U32(0)

	return enc.Bytes()
}

// decodePathHashIndex validates the path-hash section layout and returns its pairs.
func decodePathHashIndex(data []byte) (map[uint64]int32, error) {
	d := newBytesDecoder(data)
	n := d.Count(8 + 4)
	out := make(map[uint64]int32, n)
	for range n {
		hash := d.U64()
		out[hash] = d.I32()
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: path hash index: %w", ErrCorruptIndex, err)
	}

	return out, nil
}

// directoryFile is one (name, ref) pair of the full directory index.
type directoryFile struct {
	name string
	ref  int32
}

// directory is one directory record of the full directory index.
type directory struct {
	name  string
	files []directoryFile
}

// encodeFullDirectoryIndex builds the directory section.
// Every ancestor directory of every file is present, down to the root "/".
func encodeFullDirectoryIndex(paths []string, refs []int32) []byte {
	tree := make(map[string]map[string]int32)
	ensureDir := func(dir string) {
		for {
			if _, ok := tree[dir]; ok {
				return
			}

			tree[dir] = make(map[string]int32)
			parent, _, ok := splitPathChild(dir)
			if !ok {
				return
			}

			dir = parent
		}
	}

	for i, p := range paths {
		dir, name, ok := splitPathChild(p)
		if !ok {
			continue
		}

		ensureDir(dir)
		tree[dir][name] = refs[i]
	}

	var enc encoder
	enc.U32(uint32(len(tree))) //nolint:gosec // bounded by entry count
	for _, dir := range slices.Sorted(maps.Keys(tree)) {
		files := tree[dir]
		enc.PakString(dir)
		enc.U32(uint32(len(files))) //nolint:gosec // bounded by entry count
		for _, name := range slices.Sorted(maps.Keys(files)) {
			enc.PakString(name)
			enc.I32(files[name])
		}
	}

	return enc.Bytes()
}

// decodeFullDirectoryIndex parses the directory section.
func decodeFullDirectoryIndex(data []byte) ([]directory, error) {
	d := newBytesDecoder(data)
	n := d.Count(4 + 4)
	dirs := make([]directory, 0, n)
	for range n {
		dir := directory{name: d.PakString()}
		files := d.Count(4 + 4)
		dir.files = make([]directoryFile, 0, files)
		for range files {
			name := d.PakString()
			dir.files = append(dir.files, directoryFile{name: name, ref: d.I32()})
		}
		if err := d.Err(); err != nil {
			break
		}

		dirs = append(dirs, dir)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: full directory index: %w", ErrCorruptIndex, err)
	}

	return dirs, nil
}
