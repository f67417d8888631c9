// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf16"
)

// decoder reads little-endian pak primitives and keeps the first error.
// left bounds every length-prefixed allocation so garbage counts fail fast.
type decoder struct {
	r       io.Reader
	err     error
	left    int64
	read    int64
	scratch [8]byte
}

// newDecoder wraps r that holds at most limit readable bytes.
func newDecoder(r io.Reader, limit int64) *decoder {
	return &decoder{r: r, left: limit}
}

// newBytesDecoder decodes an in-memory buffer.
func newBytesDecoder(b []byte) *decoder {
	return newDecoder(bytes.NewReader(b), int64(len(b)))
}

// Err returns the first decode error.
func (d *decoder) Err() error {
	return d.err
}

// Offset returns the number of bytes consumed so far.
func (d *decoder) Offset() int64 {
	return d.read
}

// fail records err unless an earlier error is already stored.
func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// fill reads exactly len(dst) bytes into dst.
func (d *decoder) fill(dst []byte) bool {
	if d.err != nil {
		return false
	}
	if int64(len(dst)) > d.left {
		d.fail(fmt.Errorf("read %d bytes with %d left: %w", len(dst), d.left, io.ErrUnexpectedEOF))
		return false
	}

	n, err := io.ReadFull(d.r, dst)
	d.read += int64(n)
	d.left -= int64(n)
	if err != nil {
		d.fail(fmt.Errorf("read %d bytes: %w", len(dst), err))
		return false
	}

	return true
}

// Bytes reads n raw bytes.
func (d *decoder) Bytes(n int) []byte {
	if n < 0 {
		d.fail(fmt.Errorf("%w: negative length %d", ErrSizeOverflow, n))
		return nil
	}
	if int64(n) > d.left {
		d.fail(fmt.Errorf("read %d bytes with %d left: %w", n, d.left, io.ErrUnexpectedEOF))
		return nil
	}

	out := make([]byte, n)
	if !d.fill(out) {
		return nil
	}

	return out
}

func (d *decoder) U8() uint8 {
	if !d.fill(d.scratch[:1]) {
		return 0
	}

	return d.scratch[0]
}

func (d *decoder) U32() uint32 {
	if !d.fill(d.scratch[:4]) {
		return 0
	}

	return binary.LittleEndian.Uint32(d.scratch[:4])
}

func (d *decoder) I32() int32 {
	return int32(d.U32()) //nolint:gosec // two's complement reinterpretation
}

func (d *decoder) U64() uint64 {
	if !d.fill(d.scratch[:8]) {
		return 0
	}

	return binary.LittleEndian.Uint64(d.scratch[:8])
}

// Hash reads a raw 20-byte digest.
func (d *decoder) Hash() Hash {
	var h Hash
	d.fill(h[:])
	return h
}

// Bool reads one byte that must be 0 or 1.
func (d *decoder) Bool() bool {
	v := d.U8()
	if d.err != nil {
		return false
	}

	switch v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(fmt.Errorf("%w: 0x%02x", ErrInvalidBool, v))
		return false
	}
}

// Count reads a u32 element count and checks it against remaining bytes.
func (d *decoder) Count(minElemSize int64) int {
	n := d.U32()
	if d.err != nil {
		return 0
	}
	if minElemSize > 0 && int64(n)*minElemSize > d.left {
		d.fail(fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrSizeOverflow, n, d.left))
		return 0
	}

	return int(n)
}

// PakString reads a pak string: i32 length, positive for UTF-8 bytes, negative for UTF-16 units.
// Both forms include a NUL terminator; content is cut at the first NUL.
func (d *decoder) PakString() string {
	n := d.I32()
	if d.err != nil {
		return ""
	}

	switch {
	case n == 0:
		return ""
	case n > 0:
		raw := d.Bytes(int(n))
		if d.err != nil {
			return ""
		}
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}

		return string(raw)
	case n == math.MinInt32:
		d.fail(fmt.Errorf("%w: string length %d", ErrSizeOverflow, n))
		return ""
	default:
		raw := d.Bytes(int(-n) * 2)
		if d.err != nil {
			return ""
		}

		units := make([]uint16, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			u := binary.LittleEndian.Uint16(raw[i:])
			if u == 0 {
				break
			}

			units = append(units, u)
		}

		return string(utf16.Decode(units))
	}
}

// encoder appends little-endian pak primitives to an in-memory buffer.
type encoder struct {
	bytes.Buffer
}

func (e *encoder) U8(v uint8) {
	_ = e.WriteByte(v)
}

func (e *encoder) U32(v uint32) {
	_, _ = e.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *encoder) I32(v int32) {
	e.U32(uint32(v)) //nolint:gosec // two's complement reinterpretation
}

func (e *encoder) U64(v uint64) {
	_, _ = e.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *encoder) Hash(h Hash) {
	_, _ = e.Write(h[:])
}

func (e *encoder) Bool(v bool) {
	if v {
		e.U8(1)
		return
	}

	e.U8(0)
}

// PakString writes s as ASCII when every byte is below 0x80, else as UTF-16LE.
func (e *encoder) PakString(s string) {
	if isASCII(s) {
		e.I32(int32(len(s) + 1)) //nolint:gosec // bounded by index size
		_, _ = e.WriteString(s)
		e.U8(0)
		return
	}

	units := utf16.Encode([]rune(s))
	e.I32(-int32(len(units) + 1)) //nolint:gosec // bounded by index size
	for _, u := range units {
		_, _ = e.Write(binary.LittleEndian.AppendUint16(nil, u))
	}
	_, _ = e.Write([]byte{0, 0})
}

// stringSize returns the encoded length of s including prefix and terminator.
func stringSize(s string) int64 {
	if isASCII(s) {
		return 4 + int64(len(s)) + 1
	}

	return 4 + int64(len(utf16.Encode([]rune(s)))+1)*2
}

// isASCII reports whether s has only bytes below 0x80.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}

	return true
}
