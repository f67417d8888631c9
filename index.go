// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Index is the path to Entry mapping of one archive.
// Paths are forward-slash separated, case-sensitive keys iterated in byte order.
type Index struct {
	entries      map[string]Entry
	pathHashSeed uint64
	hasSeed      bool
}

// NewIndex returns an empty index without path-hash seed.
func NewIndex() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// NewIndexWithSeed returns an empty index carrying a path-hash seed (v10+).
func NewIndexWithSeed(seed uint64) *Index {
	idx := NewIndex()
	idx.pathHashSeed = seed
	idx.hasSeed = true
	return idx
}

// Add inserts or replaces the entry at path.
func (idx *Index) Add(path string, e Entry) {
	idx.entries[path] = e
}

// Get returns the entry at path.
func (idx *Index) Get(path string) (Entry, bool) {
	e, ok := idx.entries[path]
	return e, ok
}

// Len returns number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Paths returns all paths in ascending byte order.
func (idx *Index) Paths() []string {
	return slices.Sorted(maps.Keys(idx.entries))
}

// PathHashSeed returns the path-hash seed and whether it is set.
func (idx *Index) PathHashSeed() (uint64, bool) {
	return idx.pathHashSeed, idx.hasSeed
}

// indexSections holds plaintext index bytes (padded when requested); phi and fdi are empty before v10.
type indexSections struct {
	primary []byte
	phi     []byte
	fdi     []byte
}

// sectionRef is the metadata of one secondary index section.
type sectionRef struct {
	offset uint64
	size   uint64
	hash   Hash
}

// encodeIndex serializes idx for version v. indexOffset is the absolute primary index position.
// When padded is set, secondary sections are zero-padded to the AES block size before hashing
// and section offsets account for the padded primary index.
func encodeIndex(idx *Index, v Version, mountPoint string, indexOffset uint64, padded bool) (indexSections, error) {
	paths := idx.Paths()
	if uint64(len(paths)) > math.MaxUint32 {
		return indexSections{}, fmt.Errorf("%w: %d entries", ErrSizeOverflow, len(paths))
	}

	if v.Major() < MajorPathHashIndex {
		var enc encoder
		enc.PakString(mountPoint)
		enc.U32(uint32(len(paths))) //nolint:gosec // checked above
		for _, p := range paths {
			e := idx.entries[p]
			enc.PakString(p)
			if err := e.writeEntry(&enc, v, LocationIndex); err != nil {
				return indexSections{}, fmt.Errorf("write index entry %s: %w", p, err)
			}
		}

		if padded {
			return indexSections{primary: padAES(enc.Bytes())}, nil
		}

		return indexSections{primary: enc.Bytes()}, nil
	}

	var blob encoder
	var overflow []Entry
	refs := make([]int32, len(paths))
	for i, p := range paths {
		e := idx.entries[p]
		if e.canEncode(v) && uint64(blob.Len()) <= math.MaxInt32 {
			refs[i] = int32(blob.Len()) //nolint:gosec // checked above
			e.writeEncoded(&blob)
			continue
		}

		overflow = append(overflow, e)
		refs[i] = -int32(len(overflow)) //nolint:gosec // bounded by entry count
	}

	phi := encodePathHashIndex(paths, refs, idx.pathHashSeed)
	fdi := encodeFullDirectoryIndex(paths, refs)
	if padded {
		phi = padAES(phi)
		fdi = padAES(fdi)
	}

	build := func(phiRef, fdiRef sectionRef) ([]byte, error) {
		var enc encoder
		enc.PakString(mountPoint)
		enc.U32(uint32(len(paths))) //nolint:gosec // checked above
		enc.U64(idx.pathHashSeed)

		for _, ref := range []sectionRef{phiRef, fdiRef} {
			enc.U32(1)
			enc.U64(ref.offset)
			enc.U64(ref.size)
			enc.Hash(ref.hash)
		}

		enc.U32(uint32(blob.Len())) //nolint:gosec // checked above
		_, _ = enc.Write(blob.Bytes())

		enc.U32(uint32(len(overflow))) //nolint:gosec // bounded by entry count
		for i := range overflow {
			if err := overflow[i].writeEntry(&enc, v, LocationIndex); err != nil {
				return nil, fmt.Errorf("write non-encoded entry: %w", err)
			}
		}

		return enc.Bytes(), nil
	}

	// Section offsets follow the primary index, whose length does not depend on them.
	draft, err := build(sectionRef{}, sectionRef{})
	if err != nil {
		return indexSections{}, err
	}
	if padded {
		draft = padAES(draft)
	}

	phiRef := sectionRef{
		offset: indexOffset + uint64(len(draft)),
		size:   uint64(len(phi)),
		hash:   ComputeHash(phi),
	}
	fdiRef := sectionRef{
		offset: phiRef.offset + phiRef.size,
		size:   uint64(len(fdi)),
		hash:   ComputeHash(fdi),
	}

	primary, err := build(phiRef, fdiRef)
	if err != nil {
		return indexSections{}, err
	}
	if padded {
		primary = padAES(primary)
	}

	return indexSections{primary: primary, phi: phi, fdi: fdi}, nil
}

// sectionReader loads a secondary index section by absolute offset, decrypting when needed.
type sectionReader func(ref sectionRef) ([]byte, error)

// decodeIndex parses primary index bytes for version v.
func decodeIndex(data []byte, v Version, readSection sectionReader) (string, *Index, error) {
	d := newBytesDecoder(data)
	mountPoint := d.PakString()
	count := d.U32()
	if err := d.Err(); err != nil {
		return "", nil, fmt.Errorf("read index header: %w", err)
	}

	if v.Major() < MajorPathHashIndex {
		idx, err := decodeLegacyEntries(d, v, count)
		if err != nil {
			return "", nil, err
		}

		return mountPoint, idx, nil
	}

	idx := NewIndexWithSeed(d.U64())

	var phiRef, fdiRef *sectionRef
	for _, target := range []**sectionRef{&phiRef, &fdiRef} {
		if d.U32() == 0 {
			continue
		}

		ref := sectionRef{offset: d.U64(), size: d.U64(), hash: d.Hash()}
		*target = &ref
	}

	blob := d.Bytes(int(d.U32()))
	overflowCount := d.Count(int64(EntrySerializedSize(v, false, 0)))
	if err := d.Err(); err != nil {
		return "", nil, fmt.Errorf("read index header: %w", err)
	}

	overflow := make([]Entry, overflowCount)
	for i := range overflow {
		overflow[i] = readEntry(d, v)
	}
	if err := d.Err(); err != nil {
		return "", nil, fmt.Errorf("read non-encoded entries: %w", err)
	}

	if phiRef != nil {
		raw, err := readSection(*phiRef)
		if err != nil {
			return "", nil, fmt.Errorf("read path hash index: %w", err)
		}
		if _, err := decodePathHashIndex(raw); err != nil {
			return "", nil, err
		}
	}

	if fdiRef == nil {
		if count != 0 {
			return "", nil, fmt.Errorf("%w: %d entries without full directory index", ErrCorruptIndex, count)
		}

		return mountPoint, idx, nil
	}

	raw, err := readSection(*fdiRef)
	if err != nil {
		return "", nil, fmt.Errorf("read full directory index: %w", err)
	}

	dirs, err := decodeFullDirectoryIndex(raw)
	if err != nil {
		return "", nil, err
	}

	for _, dir := range dirs {
		prefix := strings.TrimPrefix(dir.name, "/")
		for _, file := range dir.files {
			e, err := resolveEncodedRef(blob, overflow, file.ref, v)
			if err != nil {
				return "", nil, fmt.Errorf("resolve %s%s: %w", prefix, file.name, err)
			}

			idx.Add(prefix+file.name, e)
		}
	}

	return mountPoint, idx, nil
}

// decodeLegacyEntries reads count (path, classic entry) pairs.
func decodeLegacyEntries(d *decoder, v Version, count uint32) (*Index, error) {
	minRecord := 4 + int64(EntrySerializedSize(v, false, 0))
	if int64(count)*minRecord > d.left {
		return nil, fmt.Errorf("%w: %d entries exceed index size", ErrCorruptIndex, count)
	}

	idx := NewIndex()
	for range count {
		path := d.PakString()
		e := readEntry(d, v)
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("read index entry: %w", err)
		}

		idx.Add(path, e)
	}

	return idx, nil
}

// resolveEncodedRef maps a directory index reference to an entry.
// Non-negative refs are blob offsets; -(i+1) selects overflow entry i.
func resolveEncodedRef(blob []byte, overflow []Entry, ref int32, v Version) (Entry, error) {
	if ref < 0 {
		i := -int64(ref) - 1
		if i >= int64(len(overflow)) {
			return Entry{}, fmt.Errorf("%w: non-encoded ref %d out of %d", ErrCorruptIndex, ref, len(overflow))
		}

		return overflow[i].clone(), nil
	}

	if int64(ref) >= int64(len(blob)) {
		return Entry{}, fmt.Errorf("%w: encoded ref %d beyond %d bytes", ErrCorruptIndex, ref, len(blob))
	}

	d := newBytesDecoder(blob[ref:])
	e := readEncodedEntry(d, v)
	if err := d.Err(); err != nil {
		return Entry{}, fmt.Errorf("%w: decode encoded entry: %w", ErrCorruptIndex, err)
	}

	return e, nil
}
