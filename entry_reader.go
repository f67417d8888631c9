// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // pak format hash
	"fmt"
	"io"
	"math"
)

// OpenEntry opens named entry for reading.
// The payload is decoded in full before the stream is returned.
func (r *Reader) OpenEntry(path string) (io.ReadCloser, error) {
	data, err := r.ReadEntry(path)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadEntry reads full (decrypted and decompressed) content of the named entry.
func (r *Reader) ReadEntry(path string) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	e, ok := r.index.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntry, path)
	}

	data, err := r.readEntryData(&e)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", path, err)
	}

	return data, nil
}

// ExtractEntry writes full content of the named entry to w.
func (r *Reader) ExtractEntry(path string, w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}

	data, err := r.ReadEntry(path)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", path, err)
	}

	return nil
}

// readEntryData decodes one entry payload.
// The data header in front of the payload is decoded again to locate the payload start.
func (r *Reader) readEntryData(e *Entry) ([]byte, error) {
	if e.Uncompressed == 0 {
		return []byte{}, nil
	}
	if e.Uncompressed > math.MaxInt || e.Compressed > math.MaxInt {
		return nil, fmt.Errorf("%w: entry sizes %d/%d", ErrSizeOverflow, e.Compressed, e.Uncompressed)
	}
	if e.Offset >= uint64(r.size) { //nolint:gosec // size is non-negative
		return nil, fmt.Errorf("%w: offset %d beyond %d bytes", ErrCorruptIndex, e.Offset, r.size)
	}

	left := r.size - int64(e.Offset) //nolint:gosec // bounded above
	d := newDecoder(io.NewSectionReader(r.ra, int64(e.Offset), left), left)
	header := readEntry(d, r.version)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("read data header: %w", err)
	}

	payloadStart := e.Offset + uint64(d.Offset()) //nolint:gosec // non-negative

	stored := e.Compressed
	if e.IsEncrypted() {
		if len(r.key) == 0 {
			return nil, ErrEncrypted
		}

		stored = align16(stored)
	}

	if payloadStart+stored > uint64(r.size) { //nolint:gosec // size is non-negative
		return nil, fmt.Errorf("%w: payload [%d, %d) beyond %d bytes", ErrCorruptIndex, payloadStart, payloadStart+stored, r.size)
	}

	buf := make([]byte, stored)
	if _, err := r.ra.ReadAt(buf, int64(payloadStart)); err != nil { //nolint:gosec // bounded above
		return nil, fmt.Errorf("read payload: %w", err)
	}

	if e.IsEncrypted() {
		if err := decryptECB(r.key, buf); err != nil {
			return nil, err
		}

		buf = buf[:e.Compressed]
	}

	ranges, err := r.blockRanges(e, payloadStart, uint64(len(buf)))
	if err != nil {
		return nil, err
	}

	if r.opts.VerifyHashes && header.Hash != nil && !header.Hash.IsZero() {
		h := sha1.New() //nolint:gosec // pak format hash
		for _, rg := range ranges {
			_, _ = h.Write(buf[rg.Start:rg.End])
		}

		var got Hash
		copy(got[:], h.Sum(nil))
		if got != *header.Hash {
			return nil, fmt.Errorf("%w: payload: got %s, want %s", ErrHashMismatch, got, header.Hash)
		}
	}

	method, err := entryMethod(r.footer.compressions, e)
	if err != nil {
		return nil, err
	}
	if method == CompressionNone {
		if uint64(len(buf)) != e.Uncompressed {
			return nil, fmt.Errorf("%w: stored %d bytes, want %d", ErrCorruptIndex, len(buf), e.Uncompressed)
		}

		return buf, nil
	}

	chunkSize := uint64(e.CompressionBlockSize)
	if len(ranges) == 1 {
		chunkSize = e.Uncompressed
	}

	out := make([]byte, 0, e.Uncompressed)
	for i, rg := range ranges {
		remaining := e.Uncompressed - uint64(len(out))
		if remaining == 0 {
			return nil, fmt.Errorf("%w: block %d past %d uncompressed bytes", ErrDecompressionFailed, i, e.Uncompressed)
		}

		expected := min(chunkSize, remaining)
		chunk, err := Decompress(method, buf[rg.Start:rg.End], int(expected)) //nolint:gosec // bounded by MaxInt check
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}

		out = append(out, chunk...)
	}

	if uint64(len(out)) != e.Uncompressed {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrDecompressionFailed, len(out), e.Uncompressed)
	}

	return out, nil
}

// blockRanges maps entry blocks to ranges inside a payload buffer of bufLen bytes.
// Without blocks the whole buffer is one range.
func (r *Reader) blockRanges(e *Entry, payloadStart, bufLen uint64) ([]Block, error) {
	if len(e.Blocks) == 0 {
		return []Block{{Start: 0, End: bufLen}}, nil
	}

	base := payloadStart
	if r.version.Major() >= MajorRelativeChunkOffsets {
		base = payloadStart - e.Offset
	}

	ranges := make([]Block, len(e.Blocks))
	for i, b := range e.Blocks {
		if b.Start < base || b.End < b.Start || b.End-base > bufLen {
			return nil, fmt.Errorf("%w: block %d [%d, %d) outside payload", ErrCorruptIndex, i, b.Start, b.End)
		}

		ranges[i] = Block{Start: b.Start - base, End: b.End - base}
	}

	return ranges, nil
}
