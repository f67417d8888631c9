// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"crypto/sha1" //nolint:gosec // pak format hash
	"fmt"
	"slices"
)

// DefaultBlockSize is the uncompressed chunk size cap, one step below the encoded escape value.
const DefaultBlockSize uint32 = 0x3e << 11

// BuildOptions configures staging of one entry.
type BuildOptions struct {
	// Key enables payload encryption when set; it must be 32 bytes.
	Key []byte `json:"-" yaml:"-"`
	// Compression lists allowed methods; the first one is used. Empty stores data as is.
	Compression []Compression `json:"compression,omitempty" yaml:"compression,omitempty"`
	// BlockSize is the uncompressed chunk size. Default is DefaultBlockSize.
	BlockSize uint32 `json:"block_size,omitempty" yaml:"block_size,omitempty"`
	// Timestamp is stored by Initial tier headers only; see TimestampFromTime.
	Timestamp uint64 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// PartialEntry is an entry staged without its archive offset.
// It is immutable after BuildPartialEntry and bound to a position by finalize.
type PartialEntry struct {
	// chunks are stored payload chunks, zero-padded and encrypted when encrypted is set.
	chunks [][]byte
	// rawLens are chunk lengths before padding.
	rawLens      []uint64
	hash         Hash
	compressed   uint64
	uncompressed uint64
	timestamp    uint64
	blockSize    uint32
	compression  Compression
	version      Version
	encrypted    bool
}

// Compression returns the chosen method; CompressionNone for stored entries.
func (p *PartialEntry) Compression() Compression {
	return p.compression
}

// Compressed returns the stored payload size without AES padding.
func (p *PartialEntry) Compressed() uint64 {
	return p.compressed
}

// Uncompressed returns the original data size.
func (p *PartialEntry) Uncompressed() uint64 {
	return p.uncompressed
}

// Hash returns SHA1 over the stored (compressed, unencrypted) payload.
func (p *PartialEntry) Hash() Hash {
	return p.hash
}

// StoredSize returns the number of payload bytes written after the data header.
func (p *PartialEntry) StoredSize() uint64 {
	var n uint64
	for _, c := range p.chunks {
		n += uint64(len(c))
	}

	return n
}

// BuildPartialEntry compresses, hashes and optionally encrypts data for version v.
// It touches no shared state and is safe to call concurrently.
func BuildPartialEntry(v Version, data []byte, opts BuildOptions) (*PartialEntry, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}

	p := &PartialEntry{
		version:      v,
		uncompressed: uint64(len(data)),
		encrypted:    len(opts.Key) > 0,
	}
	if v.Major() == MajorInitial {
		p.timestamp = opts.Timestamp
	}
	if p.encrypted {
		if v.Major() < MajorCompressionEncryption {
			return nil, fmt.Errorf("%w: data encryption needs %s", ErrEncryptionNotSupported, MajorCompressionEncryption)
		}
		if err := validateKey(opts.Key); err != nil {
			return nil, err
		}
	}

	method := CompressionNone
	if len(opts.Compression) > 0 && len(data) > 0 {
		method = opts.Compression[0]
	}

	if method == CompressionNone {
		p.hash = ComputeHash(data)
		p.compressed = uint64(len(data))
		if err := p.addChunk(data, opts.Key); err != nil {
			return nil, err
		}

		return p, nil
	}

	p.compression = method
	p.blockSize = opts.BlockSize

	// Dialects without a block table hold the compressed payload as one chunk.
	chunkSize := int(opts.BlockSize)
	if v.Major() < MajorCompressionEncryption {
		chunkSize = len(data)
	}

	h := sha1.New() //nolint:gosec // pak format hash
	for chunk := range slices.Chunk(data, chunkSize) {
		packed, err := Compress(method, chunk)
		if err != nil {
			return nil, fmt.Errorf("compress chunk: %w", err)
		}

		_, _ = h.Write(packed)
		if err := p.addChunk(packed, opts.Key); err != nil {
			return nil, err
		}
	}

	copy(p.hash[:], h.Sum(nil))

	// Compressed covers padded earlier chunks and the raw tail, matching the reader's align16 read.
	for i, c := range p.chunks {
		if i == len(p.chunks)-1 {
			p.compressed += p.rawLens[i]
			break
		}

		p.compressed += uint64(len(c))
	}

	return p, nil
}

// addChunk appends one stored chunk, encrypting it when key is set.
func (p *PartialEntry) addChunk(chunk, key []byte) error {
	p.rawLens = append(p.rawLens, uint64(len(chunk)))
	if len(key) == 0 {
		p.chunks = append(p.chunks, chunk)
		return nil
	}

	sealed, err := encryptECB(key, chunk)
	if err != nil {
		return fmt.Errorf("encrypt chunk: %w", err)
	}

	p.chunks = append(p.chunks, sealed)
	return nil
}

// finalize binds p to the absolute data-header offset and a compression slot.
// Block starts are relative to the header from RelativeChunkOffsets on, absolute before.
func (p *PartialEntry) finalize(offset uint64, slots *compressionSlots) (Entry, error) {
	e := Entry{
		Offset:       offset,
		Compressed:   p.compressed,
		Uncompressed: p.uncompressed,
		Timestamp:    p.timestamp,
	}

	h := p.hash
	e.Hash = &h
	if p.encrypted {
		e.Flags |= EntryFlagEncrypted
	}

	if p.compression == CompressionNone {
		return e, nil
	}

	index, err := slots.resolve(p.compression)
	if err != nil {
		return Entry{}, err
	}

	e.CompressionIndex = index
	if p.version.Major() < MajorCompressionEncryption {
		return e, nil
	}

	e.CompressionBlockSize = p.blockSize
	cursor := EntrySerializedSize(p.version, true, len(p.chunks))
	if p.version.Major() < MajorRelativeChunkOffsets {
		cursor += offset
	}

	e.Blocks = make([]Block, len(p.chunks))
	for i, c := range p.chunks {
		e.Blocks[i] = Block{Start: cursor, End: cursor + p.rawLens[i]}
		cursor += uint64(len(c))
	}

	return e, nil
}

// compressionSlots is the method table shared by the footer and every entry of one archive.
// It is mutated only by the single writer goroutine.
type compressionSlots struct {
	methods []Compression
	version Version
}

// newCompressionSlots returns the slot table for v, seeded from an existing footer table.
// New archives below FNameBasedCompression get the implicit Zlib, Gzip, Oodle slots.
func newCompressionSlots(v Version, existing []Compression) *compressionSlots {
	s := &compressionSlots{version: v}
	switch {
	case existing != nil:
		s.methods = slices.Clone(existing)
	case v.Major() < MajorFNameBasedCompression:
		s.methods = slices.Clone(legacyCompressions)
	}

	return s
}

// resolve returns the wire compression index (slot + 1) for c, allocating a slot when allowed.
func (s *compressionSlots) resolve(c Compression) (uint32, error) {
	if i := slices.Index(s.methods, c); i >= 0 {
		return uint32(i) + 1, nil //nolint:gosec // small table
	}

	if s.version.Major() < MajorFNameBasedCompression {
		return 0, fmt.Errorf("%w: %s cannot be named before %s", ErrCompressionSlot, c, MajorFNameBasedCompression)
	}

	if i := slices.Index(s.methods, CompressionNone); i >= 0 {
		s.methods[i] = c
		return uint32(i) + 1, nil //nolint:gosec // small table
	}

	if len(s.methods) >= s.version.compressionNameCount() {
		return 0, fmt.Errorf("%w: all %d slots are used", ErrCompressionSlot, len(s.methods))
	}

	s.methods = append(s.methods, c)
	return uint32(len(s.methods)), nil //nolint:gosec // small table
}

// list returns a copy of the table.
func (s *compressionSlots) list() []Compression {
	return slices.Clone(s.methods)
}

// lookupSlot returns the method of e; CompressionNone when unassigned or out of range.
func lookupSlot(methods []Compression, e *Entry) Compression {
	slot, ok := e.Slot()
	if !ok || slot >= len(methods) {
		return CompressionNone
	}

	return methods[slot]
}

// entryMethod resolves the method needed to decode e.
// A slot outside the table or naming no known method is an error.
func entryMethod(methods []Compression, e *Entry) (Compression, error) {
	slot, ok := e.Slot()
	switch {
	case !ok:
		return CompressionNone, nil
	case slot >= len(methods):
		return CompressionNone, fmt.Errorf("%w: compression slot %d of %d", ErrCorruptIndex, slot, len(methods))
	case methods[slot] == CompressionNone:
		return CompressionNone, fmt.Errorf("%w: compression slot %d is unnamed or unknown", ErrCompressionNotSupported, slot)
	}

	return methods[slot], nil
}
