// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import "errors"

// Sentinel errors for pak operations. Use errors.Is in callers.
var (
	// ErrInvalidMagic means the footer magic does not match the pak magic.
	ErrInvalidMagic = errors.New("invalid pak magic")
	// ErrVersionMismatch means the footer version major differs from the requested version.
	ErrVersionMismatch = errors.New("pak version mismatch")
	// ErrEncrypted means the index or entry is encrypted and no AES key was supplied.
	ErrEncrypted = errors.New("pak is encrypted but no key was provided")
	// ErrCompressionNotSupported means the compression method has no codec.
	ErrCompressionNotSupported = errors.New("compression method not supported")
	// ErrDecompressionFailed means a codec failed or produced a size mismatch.
	ErrDecompressionFailed = errors.New("decompression failed")
	// ErrMissingEntry means the requested path is not present in the index.
	ErrMissingEntry = errors.New("entry not found")
	// ErrUnsupportedOrEncrypted means every version probe failed during auto-detection.
	ErrUnsupportedOrEncrypted = errors.New("pak is unsupported or encrypted")
	// ErrInvalidBool means a boolean byte is neither 0 nor 1.
	ErrInvalidBool = errors.New("invalid boolean byte")
	// ErrInvalidHashLength means a hash was built from a slice that is not 20 bytes.
	ErrInvalidHashLength = errors.New("hash must be 20 bytes")
	// ErrMissingHash means an entry without hash was written.
	ErrMissingHash = errors.New("entry hash is missing")
	// ErrInvalidKey means the AES key is not 256 bits or cannot be parsed.
	ErrInvalidKey = errors.New("invalid AES-256 key")
	// ErrCompressionSlot means the compression method cannot be placed into the slot table.
	ErrCompressionSlot = errors.New("cannot allocate compression slot")
	// ErrInvalidVersion means the version value is unknown or not usable here.
	ErrInvalidVersion = errors.New("invalid pak version")
	// ErrCorruptIndex means the index structure is inconsistent.
	ErrCorruptIndex = errors.New("corrupt pak index")
	// ErrSizeOverflow means a size or count exceeds the format or buffer limits.
	ErrSizeOverflow = errors.New("size exceeds format limits")
	// ErrHashMismatch means stored data does not match its recorded SHA1.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrEncryptionNotSupported means the version cannot express requested encryption.
	ErrEncryptionNotSupported = errors.New("encryption not supported by pak version")
	// ErrWriterFinished means the writer already emitted index and footer.
	ErrWriterFinished = errors.New("writer already finished")
	// ErrWriterFailed means an earlier stream write failed and the output is incomplete.
	ErrWriterFailed = errors.New("writer failed earlier")
	// ErrNilReader is returned for a nil source.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter is returned for a nil destination.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed is returned by a Reader after Close.
	ErrClosed = errors.New("pak reader is closed")
	// ErrEmptyInputs is returned by Pack and Append without inputs.
	ErrEmptyInputs = errors.New("no pack inputs")
	// ErrInvalidCompressPattern wraps a pathrules error of the compression rules.
	ErrInvalidCompressPattern = errors.New("invalid compression rules")
	// ErrInvalidSelectPattern wraps a pathrules error of the extract selection rules.
	ErrInvalidSelectPattern = errors.New("invalid selection rules")
	// ErrInvalidEntryPath means an input path normalizes to nothing or holds NUL.
	ErrInvalidEntryPath = errors.New("invalid pak entry path")
	// ErrDuplicateEntryPath means two paths collide ignoring case.
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidExtractPath means an entry path is rooted, escapes via ".." or is empty.
	ErrInvalidExtractPath = errors.New("entry path cannot be extracted")
	// ErrExtractPathOutsideRoot means an output path resolves outside the destination.
	ErrExtractPathOutsideRoot = errors.New("output path outside destination")
)
