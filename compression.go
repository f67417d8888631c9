// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies a block compression method.
// CompressionNone doubles as the empty marker in compression slot tables.
type Compression uint8

// Known compression methods.
const (
	CompressionNone Compression = iota
	CompressionZlib
	CompressionGzip
	CompressionOodle
	CompressionZstd
	CompressionLZ4
)

// compressionNameSize is the fixed width of one footer method name.
const compressionNameSize = 32

var compressionNames = [...]string{"", "Zlib", "Gzip", "Oodle", "Zstd", "LZ4"}

// String returns the method name as written into the footer.
func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		if c == CompressionNone {
			return "None"
		}

		return compressionNames[c]
	}

	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// footerName returns the name stored in the footer name table.
func (c Compression) footerName() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}

	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	*c = ParseCompression(string(text))
	return nil
}

// ParseCompression parses a method name case-insensitively after trimming NUL and spaces.
// Unknown names map to CompressionNone.
func ParseCompression(name string) Compression {
	name = strings.TrimRight(name, "\x00")
	name = strings.TrimSpace(name)

	switch strings.ToLower(name) {
	case "zlib":
		return CompressionZlib
	case "gzip":
		return CompressionGzip
	case "oodle":
		return CompressionOodle
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Codec compresses and decompresses whole blocks.
type Codec interface {
	// Compress returns the compressed form of src.
	Compress(src []byte) ([]byte, error)
	// Decompress returns exactly size bytes decoded from src.
	Decompress(src []byte, size int) ([]byte, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = map[Compression]Codec{
		CompressionZlib: zlibCodec{},
		CompressionGzip: gzipCodec{},
		CompressionZstd: &zstdCodec{},
		CompressionLZ4:  lz4Codec{},
	}
)

// RegisterCodec installs or replaces the codec for method c.
func RegisterCodec(c Compression, codec Codec) error {
	if c == CompressionNone || codec == nil {
		return fmt.Errorf("%w: cannot register codec for %s", ErrCompressionNotSupported, c)
	}

	codecsMu.Lock()
	defer codecsMu.Unlock()

	codecs[c] = codec
	return nil
}

// SupportedCompressions returns methods that currently have a codec.
func SupportedCompressions() []Compression {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	out := make([]Compression, 0, len(codecs))
	for c := range codecs {
		out = append(out, c)
	}
	slices.Sort(out)

	return out
}

// lookupCodec returns the registered codec for c.
func lookupCodec(c Compression) (Codec, error) {
	codecsMu.RLock()
	codec, ok := codecs[c]
	codecsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCompressionNotSupported, c)
	}

	return codec, nil
}

// Compress compresses src with method c.
func Compress(c Compression, src []byte) ([]byte, error) {
	codec, err := lookupCodec(c)
	if err != nil {
		return nil, err
	}

	out, err := codec.Compress(src)
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", c, err)
	}

	return out, nil
}

// Decompress decodes src with method c and checks the output is exactly size bytes.
func Decompress(c Compression, src []byte, size int) ([]byte, error) {
	codec, err := lookupCodec(c)
	if err != nil {
		return nil, err
	}

	out, err := codec.Decompress(src, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompressionFailed, c, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: %s: got %d bytes, want %d", ErrDecompressionFailed, c, len(out), size)
	}

	return out, nil
}

// readExactly drains r expecting exactly size bytes.
func readExactly(r io.Reader, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}

	var probe [1]byte
	if n, _ := r.Read(probe[:]); n > 0 {
		return nil, fmt.Errorf("%w: stream longer than %d bytes", ErrSizeOverflow, size)
	}

	return out, nil
}

type zlibCodec struct{}

func (zlibCodec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (zlibCodec) Decompress(src []byte, size int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return readExactly(r, size)
}

type gzipCodec struct{}

func (gzipCodec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(src []byte, size int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return readExactly(r, size)
}

// zstdCodec shares one encoder and decoder; EncodeAll and DecodeAll are safe for concurrent use.
type zstdCodec struct {
	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	err     error
}

func (z *zstdCodec) init() error {
	z.once.Do(func() {
		z.encoder, z.err = zstd.NewWriter(nil)
		if z.err != nil {
			return
		}

		z.decoder, z.err = zstd.NewReader(nil)
	})

	return z.err
}

func (z *zstdCodec) Compress(src []byte) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}

	return z.encoder.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

func (z *zstdCodec) Decompress(src []byte, size int) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}

	return z.decoder.DecodeAll(src, make([]byte, 0, size))
}

// lz4Codec uses the raw LZ4 block format; the block size is known from the entry.
type lz4Codec struct{}

func (lz4Codec) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 && len(src) > 0 {
		return lz4LiteralBlock(src), nil
	}

	return dst[:n], nil
}

// lz4LiteralBlock encodes src as a single literal-only LZ4 sequence.
// CompressBlock reports incompressible input with n == 0 instead of emitting such a block.
func lz4LiteralBlock(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/255+2)
	n := len(src)
	if n < 15 {
		out = append(out, byte(n<<4))
	} else {
		out = append(out, 0xf0)
		for n -= 15; n >= 255; n -= 255 {
			out = append(out, 0xff)
		}
		out = append(out, byte(n))
	}

	return append(out, src...)
}

func (lz4Codec) Decompress(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	if len(src) == 0 || size == 0 {
		return dst[:0], nil
	}

	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}
