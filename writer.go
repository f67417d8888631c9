// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// defaultWriterPool reuses default-sized bufio writers between archive writers.
var defaultWriterPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
	},
}

// Writer appends entries to a pak stream and emits index and footer on Finish.
// BuildEntry is safe for concurrent use; WriteEntry, WriteFile and Finish are serialized.
type Writer struct {
	// w buffers output to the underlying stream.
	w *bufio.Writer
	// release returns w to the pool.
	release func()
	// index collects finalized entries.
	index *Index
	// slots is the compression table shared by footer and entries.
	slots *compressionSlots
	// logger receives trace and debug events.
	logger     zerolog.Logger
	mountPoint string
	opts       WriterOptions
	// pos is the absolute stream position of the next byte.
	pos uint64
	// err is the first stream write failure; later calls return it.
	err error
	// mu serializes entry appends and Finish.
	mu       sync.Mutex
	version  Version
	finished bool
}

// NewWriter starts a new archive at the current position of ws.
func NewWriter(ws io.WriteSeeker, v Version, mountPoint string, opts WriterOptions) (*Writer, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}

	idx := NewIndex()
	if v.Major() >= MajorPathHashIndex {
		idx = NewIndexWithSeed(opts.PathHashSeed)
	}

	return newWriterAt(ws, v, mountPoint, opts, idx, newCompressionSlots(v, nil))
}

// newWriterAt builds a writer resuming at the current position of ws.
func newWriterAt(
	ws io.WriteSeeker,
	v Version,
	mountPoint string,
	opts WriterOptions,
	idx *Index,
	slots *compressionSlots,
) (*Writer, error) {
	if ws == nil {
		return nil, ErrNilWriter
	}

	opts.applyDefaults()
	if err := validateWriterOptions(v, opts); err != nil {
		return nil, err
	}

	pos, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("resolve stream position: %w", err)
	}

	w, release := acquireWriterBuffer(ws, opts.BufferSize)
	return &Writer{
		w:          w,
		release:    release,
		index:      idx,
		slots:      slots,
		logger:     loggerOrNop(opts.Logger),
		mountPoint: mountPoint,
		opts:       opts,
		pos:        uint64(pos), //nolint:gosec // Seek never returns negative offsets
		version:    v,
	}, nil
}

// validateWriterOptions checks encryption settings against version capabilities.
func validateWriterOptions(v Version, opts WriterOptions) error {
	if !opts.EncryptIndex && !opts.EncryptData {
		return nil
	}

	if err := validateKey(opts.Key); err != nil {
		return err
	}
	if opts.EncryptIndex && v.Major() < MajorIndexEncryption {
		return fmt.Errorf("%w: index encryption needs %s", ErrEncryptionNotSupported, MajorIndexEncryption)
	}
	if opts.EncryptData && v.Major() < MajorCompressionEncryption {
		return fmt.Errorf("%w: data encryption needs %s", ErrEncryptionNotSupported, MajorCompressionEncryption)
	}

	return nil
}

// acquireWriterBuffer returns a buffered writer and release callback.
func acquireWriterBuffer(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// Version returns the archive version being written.
func (w *Writer) Version() Version {
	return w.version
}

// Position returns the absolute stream position of the next written byte.
func (w *Writer) Position() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pos
}

// Len returns number of entries in the index so far.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.index.Len()
}

// BuildEntry stages data for this archive. compress selects the first configured method.
func (w *Writer) BuildEntry(data []byte, compress bool) (*PartialEntry, error) {
	return BuildPartialEntry(w.version, data, w.buildOptions(compress))
}

// buildOptions derives staging options from the writer configuration.
func (w *Writer) buildOptions(compress bool) BuildOptions {
	opts := BuildOptions{BlockSize: w.opts.BlockSize}
	if compress {
		opts.Compression = w.opts.Compression
	}
	if w.opts.EncryptData {
		opts.Key = w.opts.Key
	}

	return opts
}

// WriteEntry binds p to the current position, writes data header and payload,
// and registers path in the index.
func (w *Writer) WriteEntry(path string, p *PartialEntry) (Entry, error) {
	if path == "" {
		return Entry{}, fmt.Errorf("%w: empty path", ErrInvalidEntryPath)
	}
	if p == nil {
		return Entry{}, fmt.Errorf("%w: nil staged entry for %s", ErrInvalidEntryPath, path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.usable(); err != nil {
		return Entry{}, err
	}
	if p.version != w.version {
		return Entry{}, fmt.Errorf("%w: staged for %s, writing %s", ErrInvalidVersion, p.version, w.version)
	}

	e, err := p.finalize(w.pos, w.slots)
	if err != nil {
		return Entry{}, fmt.Errorf("finalize %s: %w", path, err)
	}

	var header encoder
	if err := e.writeEntry(&header, w.version, LocationData); err != nil {
		return Entry{}, fmt.Errorf("encode header %s: %w", path, err)
	}

	if _, err := w.w.Write(header.Bytes()); err != nil {
		return Entry{}, w.fail(fmt.Errorf("write header %s: %w", path, err))
	}
	for _, c := range p.chunks {
		if _, err := w.w.Write(c); err != nil {
			return Entry{}, w.fail(fmt.Errorf("write payload %s: %w", path, err))
		}
	}

	w.pos += uint64(header.Len()) + p.StoredSize()
	w.index.Add(path, e)

	w.logger.Trace().
		Str("path", path).
		Uint64("offset", e.Offset).
		Uint64("compressed", e.Compressed).
		Uint64("uncompressed", e.Uncompressed).
		Stringer("compression", p.compression).
		Msg("pak entry written")

	return e.clone(), nil
}

// WriteFile stages and writes one entry.
func (w *Writer) WriteFile(path string, compress bool, data []byte) error {
	p, err := w.BuildEntry(data, compress)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}

	_, err = w.WriteEntry(path, p)
	return err
}

// Finish writes index sections and footer, then flushes output.
// The writer is unusable afterwards.
func (w *Writer) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.usable(); err != nil {
		return err
	}

	indexOffset := w.pos
	encrypt := w.opts.EncryptIndex
	sections, err := encodeIndex(w.index, w.version, w.mountPoint, indexOffset, encrypt)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	ftr := footer{
		compressions: w.slots.list(),
		indexOffset:  indexOffset,
		indexSize:    uint64(len(sections.primary)),
		hash:         ComputeHash(sections.primary),
		encrypted:    encrypt,
	}

	for _, section := range [][]byte{sections.primary, sections.phi, sections.fdi} {
		if len(section) == 0 {
			continue
		}

		if encrypt {
			if section, err = encryptECB(w.opts.Key, section); err != nil {
				return w.fail(fmt.Errorf("encrypt index: %w", err))
			}
		}

		if _, err := w.w.Write(section); err != nil {
			return w.fail(fmt.Errorf("write index: %w", err))
		}

		w.pos += uint64(len(section))
	}

	var enc encoder
	ftr.write(&enc, w.version)
	if _, err := w.w.Write(enc.Bytes()); err != nil {
		return w.fail(fmt.Errorf("write footer: %w", err))
	}

	w.pos += uint64(enc.Len())
	if err := w.w.Flush(); err != nil {
		return w.fail(fmt.Errorf("flush: %w", err))
	}

	w.finished = true
	w.release()

	w.logger.Debug().
		Stringer("version", w.version).
		Int("entries", w.index.Len()).
		Uint64("index_offset", indexOffset).
		Uint64("index_size", ftr.indexSize).
		Bool("encrypted_index", encrypt).
		Msg("pak index written")

	return nil
}

// usable rejects calls after Finish or after a failed stream write.
func (w *Writer) usable() error {
	switch {
	case w.finished:
		return ErrWriterFinished
	case w.err != nil:
		return fmt.Errorf("%w: %w", ErrWriterFailed, w.err)
	}

	return nil
}

// fail records err as the first stream failure and returns it.
func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

// ToWriter resumes writing ws at this archive's index offset.
// Existing entries, mount point, path hash seed and compression table are carried over.
// ws must address the same bytes as the reader source.
func (r *Reader) ToWriter(ws io.WriteSeeker, opts WriterOptions) (*Writer, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrNilWriter
	}

	if r.footer.encrypted {
		opts.EncryptIndex = true
	}
	if len(opts.Key) == 0 {
		opts.Key = r.key
	}

	if _, err := ws.Seek(int64(r.footer.indexOffset), io.SeekStart); err != nil { //nolint:gosec // bounded by archive size
		return nil, fmt.Errorf("seek to index: %w", err)
	}

	idx := NewIndex()
	if seed, ok := r.index.PathHashSeed(); ok {
		idx = NewIndexWithSeed(seed)
	}
	for _, p := range r.index.Paths() {
		e, _ := r.index.Get(p)
		idx.Add(p, e.clone())
	}

	return newWriterAt(ws, r.version, r.mountPoint, opts, idx, newCompressionSlots(r.version, r.footer.compressions))
}
