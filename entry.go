// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"math"
	"time"
)

// Entry flag bits.
const (
	// EntryFlagEncrypted marks AES-encrypted payload.
	EntryFlagEncrypted uint8 = 1 << 0
	// EntryFlagDeleted marks a delete record.
	EntryFlagDeleted uint8 = 1 << 1
)

// blockRecordSize is the classic on-disk size of one Block.
const blockRecordSize = 16

// Block is a half-open byte range [Start, End) of one independently compressed chunk.
type Block struct {
	Start uint64 `json:"start" yaml:"start"`
	End   uint64 `json:"end" yaml:"end"`
}

// Len returns the stored chunk length.
func (b Block) Len() uint64 {
	return b.End - b.Start
}

// EntryLocation selects which copy of an entry header is being written.
type EntryLocation uint8

const (
	// LocationData is the header in front of the payload; its offset field is always 0.
	LocationData EntryLocation = iota
	// LocationIndex is the index copy that carries the real offset.
	LocationIndex
)

// Entry is the canonical per-file record shared by the classic and encoded wire forms.
type Entry struct {
	// Hash is SHA1 over the stored (possibly compressed) payload; nil means unknown.
	Hash *Hash `json:"hash,omitempty" yaml:"hash,omitempty"`
	// Blocks lists compressed chunk ranges; nil for stored entries.
	Blocks []Block `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	// Offset is the absolute position of the data-section header.
	Offset uint64 `json:"offset" yaml:"offset"`
	// Compressed is the stored payload size.
	Compressed uint64 `json:"compressed" yaml:"compressed"`
	// Uncompressed is the original payload size.
	Uncompressed uint64 `json:"uncompressed" yaml:"uncompressed"`
	// Timestamp is only present for the Initial tier, in 100 ns ticks since 0001-01-01 UTC.
	Timestamp uint64 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	// CompressionIndex is the wire value: 0 for stored, N for compression slot N-1.
	CompressionIndex uint32 `json:"compression_index,omitempty" yaml:"compression_index,omitempty"`
	// CompressionBlockSize is the uncompressed size of every block except possibly the last.
	CompressionBlockSize uint32 `json:"compression_block_size,omitempty" yaml:"compression_block_size,omitempty"`
	// Flags holds EntryFlagEncrypted and EntryFlagDeleted.
	Flags uint8 `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// unixEpochTicks is 1970-01-01 UTC in 100 ns ticks since 0001-01-01.
const unixEpochTicks = 621_355_968_000_000_000

// TimestampFromTime converts t to entry timestamp ticks.
// The zero time and times outside years 1..9999 map to 0.
func TimestampFromTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}

	t = t.UTC()
	if t.Year() < 1 || t.Year() > 9999 {
		return 0
	}

	ticks := t.Unix()*10_000_000 + int64(t.Nanosecond()/100) + unixEpochTicks
	return uint64(ticks) //nolint:gosec // non-negative for years 1..9999
}

// Slot returns the compression slot and whether the entry is compressed.
func (e *Entry) Slot() (int, bool) {
	if e.CompressionIndex == 0 {
		return 0, false
	}

	return int(e.CompressionIndex - 1), true
}

// IsCompressed reports whether a compression slot is assigned.
func (e *Entry) IsCompressed() bool {
	return e.CompressionIndex != 0
}

// IsEncrypted reports whether payload is AES-encrypted.
func (e *Entry) IsEncrypted() bool {
	return e.Flags&EntryFlagEncrypted != 0
}

// IsDeleted reports whether entry is a delete record.
func (e *Entry) IsDeleted() bool {
	return e.Flags&EntryFlagDeleted != 0
}

// clone returns a deep copy.
func (e Entry) clone() Entry {
	if e.Hash != nil {
		h := *e.Hash
		e.Hash = &h
	}
	if e.Blocks != nil {
		e.Blocks = append([]Block(nil), e.Blocks...)
	}

	return e
}

// EntrySerializedSize returns the classic header size for the given layout inputs.
// It depends only on version, presence of compression and block count.
func EntrySerializedSize(v Version, compressed bool, blockCount int) uint64 {
	major := v.Major()

	size := uint64(8 + 8 + 8) // offset, compressed, uncompressed
	if v == V8A {
		size++
	} else {
		size += 4
	}
	if major == MajorInitial {
		size += 8
	}
	size += HashSize

	if major >= MajorCompressionEncryption {
		if compressed {
			size += 4 + blockRecordSize*uint64(blockCount) //nolint:gosec // non-negative count
		}

		size += 1 + 4 // flags, compression block size
	}

	return size
}

// serializedSize returns the classic header size of e.
func (e *Entry) serializedSize(v Version) uint64 {
	return EntrySerializedSize(v, e.IsCompressed(), len(e.Blocks))
}

// readEntry decodes a classic entry.
func readEntry(d *decoder, v Version) Entry {
	major := v.Major()

	var e Entry
	e.Offset = d.U64()
	e.Compressed = d.U64()
	e.Uncompressed = d.U64()
	if v == V8A {
		e.CompressionIndex = uint32(d.U8())
	} else {
		e.CompressionIndex = d.U32()
	}
	if major == MajorInitial {
		e.Timestamp = d.U64()
	}

	h := d.Hash()
	e.Hash = &h

	if major >= MajorCompressionEncryption {
		if e.IsCompressed() {
			n := d.Count(blockRecordSize)
			if n > 0 {
				e.Blocks = make([]Block, n)
				for i := range e.Blocks {
					e.Blocks[i].Start = d.U64()
					e.Blocks[i].End = d.U64()
				}
			}
		}

		e.Flags = d.U8()
		e.CompressionBlockSize = d.U32()
	}

	return e
}

// writeEntry encodes e in classic form. LocationData forces the offset field to zero.
func (e *Entry) writeEntry(enc *encoder, v Version, loc EntryLocation) error {
	if e.Hash == nil {
		return ErrMissingHash
	}

	major := v.Major()

	if loc == LocationData {
		enc.U64(0)
	} else {
		enc.U64(e.Offset)
	}
	enc.U64(e.Compressed)
	enc.U64(e.Uncompressed)

	if v == V8A {
		if e.CompressionIndex > math.MaxUint8 {
			return fmt.Errorf("%w: index %d does not fit u8", ErrCompressionSlot, e.CompressionIndex)
		}

		enc.U8(uint8(e.CompressionIndex))
	} else {
		enc.U32(e.CompressionIndex)
	}

	if major == MajorInitial {
		enc.U64(e.Timestamp)
	}

	enc.Hash(*e.Hash)

	if major >= MajorCompressionEncryption {
		if e.IsCompressed() {
			enc.U32(uint32(len(e.Blocks))) //nolint:gosec // bounded by index size
			for _, b := range e.Blocks {
				enc.U64(b.Start)
				enc.U64(b.End)
			}
		}

		enc.U8(e.Flags)
		enc.U32(e.CompressionBlockSize)
	}

	return nil
}
