// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"math"
)

// Encoded entry bit layout (v10+).
const (
	encodedBlockSizeMask   = 0x3f
	encodedBlockSizeEscape = 0x3f
	encodedBlockSizeShift  = 11
	encodedBlockCountShift = 6
	encodedBlockCountMask  = 0xffff
	encodedEncryptedBit    = 22
	encodedSlotShift       = 23
	encodedSlotMask        = 0x3f
	encodedCompressedFits  = 29
	encodedUncompressedFit = 30
	encodedOffsetFits      = 31
)

// readEncodedEntry decodes the compact v10+ entry form.
// The hash is not stored in this form and decodes as zero.
func readEncodedEntry(d *decoder, v Version) Entry {
	bits := d.U32()
	if d.Err() != nil {
		return Entry{}
	}

	slotPlusOne := (bits >> encodedSlotShift) & encodedSlotMask
	encrypted := bits&(1<<encodedEncryptedBit) != 0
	blockCount := int((bits >> encodedBlockCountShift) & encodedBlockCountMask)

	blockSize := bits & encodedBlockSizeMask
	if blockSize == encodedBlockSizeEscape {
		blockSize = d.U32()
	} else {
		blockSize <<= encodedBlockSizeShift
	}

	varint := func(bit uint) uint64 {
		if bits&(1<<bit) != 0 {
			return uint64(d.U32())
		}

		return d.U64()
	}

	var e Entry
	e.Offset = varint(encodedOffsetFits)
	e.Uncompressed = varint(encodedUncompressedFit)
	e.Compressed = e.Uncompressed
	if slotPlusOne != 0 {
		e.Compressed = varint(encodedCompressedFits)
	}

	e.CompressionIndex = slotPlusOne
	e.CompressionBlockSize = blockSize
	e.Hash = &Hash{}
	if encrypted {
		e.Flags = EntryFlagEncrypted
	}

	base := EntrySerializedSize(v, slotPlusOne != 0, blockCount)
	switch {
	case blockCount == 1 && !encrypted:
		e.Blocks = []Block{{Start: base, End: base + e.Compressed}}
	case blockCount > 0:
		if int64(blockCount)*4 > d.left {
			d.fail(fmt.Errorf("%w: %d encoded blocks with %d bytes left", ErrSizeOverflow, blockCount, d.left))
			return Entry{}
		}

		e.Blocks = make([]Block, blockCount)
		cursor := base
		for i := range e.Blocks {
			size := uint64(d.U32())
			e.Blocks[i] = Block{Start: cursor, End: cursor + size}
			if encrypted {
				size = align16(size)
			}

			cursor += size
		}
	}

	return e
}

// writeEncoded encodes e in the compact v10+ form. Callers check canEncode first.
func (e *Entry) writeEncoded(enc *encoder) {
	blockSizeBits := (e.CompressionBlockSize >> encodedBlockSizeShift) & encodedBlockSizeMask
	if blockSizeBits<<encodedBlockSizeShift != e.CompressionBlockSize {
		blockSizeBits = encodedBlockSizeEscape
	}

	var blockCount uint32
	if e.IsCompressed() {
		blockCount = uint32(len(e.Blocks)) //nolint:gosec // checked by canEncode
	}

	compressedFits := e.Compressed <= math.MaxUint32
	uncompressedFits := e.Uncompressed <= math.MaxUint32
	offsetFits := e.Offset <= math.MaxUint32

	bits := blockSizeBits |
		blockCount<<encodedBlockCountShift |
		boolBit(e.IsEncrypted())<<encodedEncryptedBit |
		e.CompressionIndex<<encodedSlotShift |
		boolBit(compressedFits)<<encodedCompressedFits |
		boolBit(uncompressedFits)<<encodedUncompressedFit |
		boolBit(offsetFits)<<encodedOffsetFits

	enc.U32(bits)
	if blockSizeBits == encodedBlockSizeEscape {
		enc.U32(e.CompressionBlockSize)
	}

	putVarint(enc, e.Offset, offsetFits)
	putVarint(enc, e.Uncompressed, uncompressedFits)

	if !e.IsCompressed() {
		return
	}

	putVarint(enc, e.Compressed, compressedFits)
	if len(e.Blocks) > 1 || e.IsEncrypted() {
		for _, b := range e.Blocks {
			enc.U32(uint32(b.Len())) //nolint:gosec // checked by canEncode
		}
	}
}

// canEncode reports whether e survives the compact form unchanged, apart from its hash.
// Entries that fail this check go to the non-encoded overflow list of the index.
func (e *Entry) canEncode(v Version) bool {
	if e.CompressionIndex > encodedSlotMask || e.Flags&^EntryFlagEncrypted != 0 || e.Timestamp != 0 {
		return false
	}
	if !e.IsCompressed() {
		return len(e.Blocks) == 0 && e.Compressed == e.Uncompressed
	}
	if len(e.Blocks) > encodedBlockCountMask {
		return false
	}

	base := e.serializedSize(v)
	if len(e.Blocks) == 1 && !e.IsEncrypted() {
		return e.Blocks[0] == Block{Start: base, End: base + e.Compressed}
	}

	cursor := base
	for _, b := range e.Blocks {
		if b.Start != cursor || b.End < b.Start || b.Len() > math.MaxUint32 {
			return false
		}

		size := b.Len()
		if e.IsEncrypted() {
			size = align16(size)
		}

		cursor += size
	}

	return true
}

// putVarint writes v as u32 when fits is set, else as u64.
func putVarint(enc *encoder, v uint64, fits bool) {
	if fits {
		enc.U32(uint32(v)) //nolint:gosec // fits checked by caller
		return
	}

	enc.U64(v)
}

// boolBit converts b to 0 or 1.
func boolBit(b bool) uint32 {
	if b {
		return 1
	}

	return 0
}
