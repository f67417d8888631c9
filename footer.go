// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// footer is the trailing fixed-size record of a pak.
type footer struct {
	// guid is the encryption key GUID; nil when absent or all zero.
	guid *uuid.UUID
	// compressions is the slot table; CompressionNone marks an empty slot.
	compressions []Compression
	indexOffset  uint64
	indexSize    uint64
	hash         Hash
	magic        uint32
	major        VersionMajor
	encrypted    bool
	frozen       bool
}

// legacyCompressions are the implicit slots of dialects without a name table.
var legacyCompressions = []Compression{CompressionZlib, CompressionGzip, CompressionOodle}

// readFooter decodes and validates a footer for version v.
func readFooter(d *decoder, v Version) (footer, error) {
	major := v.Major()

	var f footer
	if major >= MajorEncryptionKeyGUID {
		raw := d.Bytes(16)
		if d.Err() == nil {
			if id, err := uuid.FromBytes(raw); err == nil && id != uuid.Nil {
				f.guid = &id
			}
		}
	}
	if major >= MajorIndexEncryption {
		f.encrypted = d.Bool()
	}

	f.magic = d.U32()
	f.major = VersionMajor(d.U32())
	f.indexOffset = d.U64()
	f.indexSize = d.U64()
	f.hash = d.Hash()
	if err := d.Err(); err != nil {
		return footer{}, fmt.Errorf("read footer: %w", err)
	}

	if f.magic != Magic {
		return footer{}, fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, f.magic)
	}
	if f.major != major {
		return footer{}, fmt.Errorf("%w: expected %s, found %s", ErrVersionMismatch, major, f.major)
	}

	if major == MajorFrozenIndex {
		f.frozen = d.Bool()
	}

	names := v.compressionNameCount()
	f.compressions = make([]Compression, 0, names+len(legacyCompressions))
	for range names {
		raw := d.Bytes(compressionNameSize)
		if d.Err() != nil {
			break
		}
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}

		f.compressions = append(f.compressions, ParseCompression(string(raw)))
	}
	if major < MajorFNameBasedCompression {
		f.compressions = append(f.compressions, legacyCompressions...)
	}

	if err := d.Err(); err != nil {
		return footer{}, fmt.Errorf("read footer: %w", err)
	}

	return f, nil
}

// write encodes f for version v. The GUID is always written as zeros.
func (f *footer) write(enc *encoder, v Version) {
	major := v.Major()

	if major >= MajorEncryptionKeyGUID {
		_, _ = enc.Write(make([]byte, 16))
	}
	if major >= MajorIndexEncryption {
		enc.Bool(f.encrypted)
	}

	enc.U32(Magic)
	enc.U32(uint32(major))
	enc.U64(f.indexOffset)
	enc.U64(f.indexSize)
	enc.Hash(f.hash)

	if major == MajorFrozenIndex {
		enc.Bool(f.frozen)
	}

	for i := range v.compressionNameCount() {
		var name [compressionNameSize]byte
		if i < len(f.compressions) {
			copy(name[:], f.compressions[i].footerName())
		}

		_, _ = enc.Write(name[:])
	}
}
