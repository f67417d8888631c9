// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reader provides read-only access to a parsed pak archive.
type Reader struct {
	// ra is the underlying random-access reader used for footer, index and payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// index holds every entry decoded from the primary index.
	index *Index
	// key is the AES-256 key for encrypted index and payloads.
	key []byte
	// mountPoint is the index mount point string.
	mountPoint string
	// logger receives probing events.
	logger zerolog.Logger
	// opts keeps listing filters.
	opts ReaderOptions
	// footer is the decoded trailing record.
	footer footer
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// version is the resolved archive version.
	version Version
	// closed reports whether Close was already called.
	closed bool
}

// Open opens a pak file by path and auto-detects its version.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens a pak file by path using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openSized(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReader parses a pak from ReaderAt and known size.
// With VersionAuto every version is tried from newest to oldest.
func NewReader(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	if len(opts.Key) > 0 {
		if err := validateKey(opts.Key); err != nil {
			return nil, err
		}
	}

	logger := loggerOrNop(opts.Logger)
	if opts.Version != VersionAuto {
		return readVersion(ra, size, opts.Version, opts, logger)
	}

	var errs []error
	for _, v := range VersionsNewestFirst() {
		r, err := readVersion(ra, size, v, opts, logger)
		if err == nil {
			logger.Debug().Stringer("version", v).Msg("pak version detected")
			return r, nil
		}

		logger.Debug().Err(err).Stringer("version", v).Msg("pak version probe failed")
		errs = append(errs, fmt.Errorf("%s: %w", v, err))
	}

	return nil, fmt.Errorf("%w: %w", ErrUnsupportedOrEncrypted, errors.Join(errs...))
}

// readVersion reads footer and index assuming version v.
func readVersion(ra io.ReaderAt, size int64, v Version, opts ReaderOptions, logger zerolog.Logger) (*Reader, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}

	footerSize := v.FooterSize()
	if size < footerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than %s footer", ErrInvalidMagic, size, v)
	}

	ftr, err := readFooter(newDecoder(io.NewSectionReader(ra, size-footerSize, footerSize), footerSize), v)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		ra:      ra,
		key:     opts.Key,
		logger:  logger,
		opts:    opts,
		footer:  ftr,
		size:    size,
		version: v,
	}

	primary, err := r.readIndexSection(sectionRef{offset: ftr.indexOffset, size: ftr.indexSize, hash: ftr.hash})
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	r.mountPoint, r.index, err = decodeIndex(primary, v, r.readIndexSection)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// readIndexSection reads one index section, decrypting and verifying it as configured.
func (r *Reader) readIndexSection(ref sectionRef) ([]byte, error) {
	end := ref.offset + ref.size
	if end < ref.offset || end > uint64(r.size) || ref.size > math.MaxInt { //nolint:gosec // size is non-negative
		return nil, fmt.Errorf("%w: section [%d, %d) outside %d bytes", ErrCorruptIndex, ref.offset, end, r.size)
	}

	buf := make([]byte, ref.size)
	if _, err := r.ra.ReadAt(buf, int64(ref.offset)); err != nil { //nolint:gosec // bounded by size check
		return nil, fmt.Errorf("read section at %d: %w", ref.offset, err)
	}

	if r.footer.encrypted {
		if len(r.key) == 0 {
			return nil, ErrEncrypted
		}
		if err := decryptECB(r.key, buf); err != nil {
			return nil, err
		}
	}

	if r.opts.VerifyHashes {
		if got := ComputeHash(buf); got != ref.hash {
			return nil, fmt.Errorf("%w: index section at %d: got %s, want %s", ErrHashMismatch, ref.offset, got, ref.hash)
		}
	}

	return buf, nil
}

// Version returns the resolved archive version.
func (r *Reader) Version() Version {
	return r.version
}

// MountPoint returns the index mount point.
func (r *Reader) MountPoint() string {
	return r.mountPoint
}

// EncryptedIndex reports whether the index is AES-encrypted.
func (r *Reader) EncryptedIndex() bool {
	return r.footer.encrypted
}

// EncryptionGUID returns the footer key GUID, nil when absent.
func (r *Reader) EncryptionGUID() *uuid.UUID {
	if r.footer.guid == nil {
		return nil
	}

	id := *r.footer.guid
	return &id
}

// PathHashSeed returns the v10+ path hash seed.
func (r *Reader) PathHashSeed() (uint64, bool) {
	return r.index.PathHashSeed()
}

// Compressions returns a copy of the compression slot table.
func (r *Reader) Compressions() []Compression {
	return slices.Clone(r.footer.compressions)
}

// Paths returns every indexed path in ascending byte order.
func (r *Reader) Paths() []string {
	return r.index.Paths()
}

// Entry returns a copy of the index entry at path.
func (r *Reader) Entry(path string) (Entry, error) {
	e, ok := r.index.Get(path)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrMissingEntry, path)
	}

	return e.clone(), nil
}

// Entries returns listing metadata of visible entries in path order.
// Listing filters from ReaderOptions are applied.
func (r *Reader) Entries() []EntryInfo {
	if r == nil || r.index == nil {
		return nil
	}

	paths := r.index.Paths()
	entries := make([]EntryInfo, 0, len(paths))
	for _, p := range paths {
		e, _ := r.index.Get(p)
		entries = append(entries, r.entryInfo(p, &e))
	}

	return filterEntries(entries, r.opts)
}

// entryInfo converts an index entry to listing metadata.
func (r *Reader) entryInfo(path string, e *Entry) EntryInfo {
	return EntryInfo{
		Path:         path,
		Compression:  lookupSlot(r.footer.compressions, e),
		Offset:       e.Offset,
		Compressed:   e.Compressed,
		Uncompressed: e.Uncompressed,
		Blocks:       len(e.Blocks),
		Encrypted:    e.IsEncrypted(),
		Deleted:      e.IsDeleted(),
	}
}

// Info returns archive-level metadata.
func (r *Reader) Info() ArchiveInfo {
	info := ArchiveInfo{
		EncryptionGUID: r.EncryptionGUID(),
		MountPoint:     r.mountPoint,
		Compressions:   r.Compressions(),
		IndexHash:      r.footer.hash,
		Size:           r.size,
		IndexOffset:    r.footer.indexOffset,
		IndexSize:      r.footer.indexSize,
		Entries:        r.index.Len(),
		Version:        r.version,
		EncryptedIndex: r.footer.encrypted,
		Frozen:         r.footer.frozen,
	}

	if seed, ok := r.index.PathHashSeed(); ok {
		info.PathHashSeed = &seed
	}

	return info
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// checkOpen fails when r is nil or closed.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return nil
}
