// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"crypto/sha1" //nolint:gosec // pak format requires SHA1.
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the SHA1 digest length used by pak entries and indices.
const HashSize = sha1.Size

// Hash is a raw 20-byte SHA1 digest.
type Hash [HashSize]byte

// NewHash copies a 20-byte digest into Hash.
func NewHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: got %d", ErrInvalidHashLength, len(b))
	}

	copy(h[:], b)
	return h, nil
}

// ComputeHash returns SHA1 of data.
func ComputeHash(data []byte) Hash {
	return Hash(sha1.Sum(data)) //nolint:gosec // pak format requires SHA1.
}

// IsZero reports whether all digest bytes are zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the upper-case hex form.
func (h Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
