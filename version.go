// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"
	"strings"
)

// Magic is the little-endian u32 marker stored in every pak footer.
const Magic uint32 = 0x5A6F12E1

// VersionMajor is the semantic feature tier stored in the footer.
type VersionMajor uint32

// Feature tiers in ascending order; each tier includes all lower ones.
const (
	MajorUnknown VersionMajor = iota
	MajorInitial
	MajorNoTimestamps
	MajorCompressionEncryption
	MajorIndexEncryption
	MajorRelativeChunkOffsets
	MajorDeleteRecords
	MajorEncryptionKeyGUID
	MajorFNameBasedCompression
	MajorFrozenIndex
	MajorPathHashIndex
	MajorFnv64BugFix
)

var versionMajorNames = [...]string{
	"Unknown",
	"Initial",
	"NoTimestamps",
	"CompressionEncryption",
	"IndexEncryption",
	"RelativeChunkOffsets",
	"DeleteRecords",
	"EncryptionKeyGuid",
	"FNameBasedCompression",
	"FrozenIndex",
	"PathHashIndex",
	"Fnv64BugFix",
}

// String returns the tier name.
func (m VersionMajor) String() string {
	if int(m) < len(versionMajorNames) {
		return versionMajorNames[m]
	}

	return fmt.Sprintf("VersionMajor(%d)", uint32(m))
}

// Version is an ordinal pak dialect. It fully determines the byte layout.
type Version uint8

// Pak dialects. VersionAuto is only meaningful for readers and requests probing.
const (
	VersionAuto Version = iota
	V0
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8A
	V8B
	V9
	V10
	V11
)

// VersionLatest is the newest dialect this package writes.
const VersionLatest = V11

var versionNames = [...]string{
	"Auto", "V0", "V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8A", "V8B", "V9", "V10", "V11",
}

// Valid reports whether v is a concrete dialect.
func (v Version) Valid() bool {
	return v >= V0 && v <= V11
}

// Major returns the feature tier of v.
func (v Version) Major() VersionMajor {
	switch {
	case !v.Valid():
		return MajorUnknown
	case v <= V7:
		return VersionMajor(v - V0)
	case v == V8A || v == V8B:
		return MajorFNameBasedCompression
	default:
		return VersionMajor(v - V0 - 1)
	}
}

// FooterSize returns the exact length of the trailing footer record.
func (v Version) FooterSize() int64 {
	major := v.Major()

	// magic + major + index offset + index size + index hash
	size := int64(4 + 4 + 8 + 8 + 20)
	if major >= MajorEncryptionKeyGUID {
		size += 16
	}
	if major >= MajorIndexEncryption {
		size++
	}
	if major == MajorFrozenIndex {
		size++
	}
	if v >= V8A {
		size += 4 * compressionNameSize
	}
	if v >= V8B {
		size += compressionNameSize
	}

	return size
}

// compressionNameCount returns the number of 32-byte method names in the footer.
func (v Version) compressionNameCount() int {
	switch {
	case v < V8A:
		return 0
	case v < V8B:
		return 4
	default:
		return 5
	}
}

// String returns the dialect name.
func (v Version) String() string {
	if int(v) < len(versionNames) {
		return versionNames[v]
	}

	return fmt.Sprintf("Version(%d)", uint8(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}

	*v = parsed
	return nil
}

// ParseVersion parses dialect names like "V11", "v8a", "11" or "auto".
func ParseVersion(raw string) (Version, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" || name == "AUTO" {
		return VersionAuto, nil
	}
	if !strings.HasPrefix(name, "V") {
		name = "V" + name
	}

	for i := V0; i <= V11; i++ {
		if versionNames[i] == name {
			return i, nil
		}
	}

	return VersionAuto, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
}

// VersionsNewestFirst returns every concrete dialect in descending ordinal order.
func VersionsNewestFirst() []Version {
	out := make([]Version, 0, int(V11))
	for v := V11; v >= V0; v-- {
		out = append(out, v)
	}

	return out
}
