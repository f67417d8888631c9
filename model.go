// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/woozymasta/pathrules"
)

// Default tuning values.
const (
	// DefaultMountPoint is the mount point used by new archives.
	DefaultMountPoint = "../../../"
	// DefaultWriteBuffer is the buffered writer size for archive output.
	DefaultWriteBuffer = 4 * 1024 * 1024
	// DefaultMinCompressSize disables compression for tiny entries.
	DefaultMinCompressSize = 512
)

// EntryInfo describes one indexed entry for listing and extraction selection.
type EntryInfo struct {
	// Path is the forward-slash entry path as stored in the index.
	Path string `json:"path" yaml:"path"`
	// Compression is the method resolved from the entry slot.
	Compression Compression `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Offset is the absolute data header position.
	Offset uint64 `json:"offset" yaml:"offset"`
	// Compressed is the stored payload size.
	Compressed uint64 `json:"compressed" yaml:"compressed"`
	// Uncompressed is the original payload size.
	Uncompressed uint64 `json:"uncompressed" yaml:"uncompressed"`
	// Blocks is the number of compressed chunks.
	Blocks int `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	// Encrypted reports AES-encrypted payload.
	Encrypted bool `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	// Deleted reports a delete record.
	Deleted bool `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// ArchiveInfo is archive-level metadata decoded from footer and index.
type ArchiveInfo struct {
	// EncryptionGUID is the footer key GUID; nil when absent or zero.
	EncryptionGUID *uuid.UUID `json:"encryption_guid,omitempty" yaml:"encryption_guid,omitempty"`
	// PathHashSeed is set for v10+ archives.
	PathHashSeed *uint64 `json:"path_hash_seed,omitempty" yaml:"path_hash_seed,omitempty"`
	// MountPoint is the index mount point string.
	MountPoint string `json:"mount_point" yaml:"mount_point"`
	// Compressions is the compression slot table.
	Compressions []Compression `json:"compressions,omitempty" yaml:"compressions,omitempty"`
	// IndexHash is SHA1 of the stored primary index.
	IndexHash Hash `json:"index_hash" yaml:"index_hash"`
	// Size is the archive size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// IndexOffset is the absolute primary index position.
	IndexOffset uint64 `json:"index_offset" yaml:"index_offset"`
	// IndexSize is the stored primary index length.
	IndexSize uint64 `json:"index_size" yaml:"index_size"`
	// Entries is number of indexed entries.
	Entries int `json:"entries" yaml:"entries"`
	// Version is the resolved archive version.
	Version Version `json:"version" yaml:"version"`
	// EncryptedIndex reports AES-encrypted index.
	EncryptedIndex bool `json:"encrypted_index,omitempty" yaml:"encrypted_index,omitempty"`
	// Frozen reports the frozen index flag of v9 archives.
	Frozen bool `json:"frozen,omitempty" yaml:"frozen,omitempty"`
}

// Input describes one source stream to be packed into an archive entry.
type Input struct {
	// ModTime becomes the entry timestamp in Initial tier archives and is ignored otherwise.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// Open returns the entry content; the caller closes it.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path is destination path inside the archive.
	Path string `json:"path" yaml:"path"`
	// SizeHint is the expected content length, 0 when unknown.
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// PackEntryProgress reports one entry appended by Pack.
type PackEntryProgress struct {
	// Path is the normalized archive path.
	Path string `json:"path" yaml:"path"`
	// Compression is the method used; CompressionNone for stored entries.
	Compression Compression `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Offset is the data header position in resulting archive.
	Offset uint64 `json:"offset" yaml:"offset"`
	// Compressed is stored payload size in bytes.
	Compressed uint64 `json:"compressed" yaml:"compressed"`
	// Uncompressed is original size in bytes.
	Uncompressed uint64 `json:"uncompressed" yaml:"uncompressed"`
	// CompressionCandidate reports whether compression rules selected this entry.
	CompressionCandidate bool `json:"compression_candidate,omitempty" yaml:"compression_candidate,omitempty"`
}

// WriterOptions configures archive writer behavior.
type WriterOptions struct {
	// Logger receives trace and debug events; nil disables logging.
	Logger *zerolog.Logger `json:"-" yaml:"-"`
	// Key is the AES-256 key used by EncryptIndex and EncryptData.
	Key []byte `json:"-" yaml:"-"`
	// Compression lists allowed methods for compressed entries; the first one is used.
	// Default is Zlib.
	Compression []Compression `json:"compression,omitempty" yaml:"compression,omitempty"`
	// PathHashSeed seeds the v10+ path hash index.
	PathHashSeed uint64 `json:"path_hash_seed,omitempty" yaml:"path_hash_seed,omitempty"`
	// BufferSize is buffered writer size in bytes.
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
	// BlockSize is the uncompressed chunk size. Default is DefaultBlockSize.
	BlockSize uint32 `json:"block_size,omitempty" yaml:"block_size,omitempty"`
	// EncryptIndex encrypts the index sections (v4+).
	EncryptIndex bool `json:"encrypt_index,omitempty" yaml:"encrypt_index,omitempty"`
	// EncryptData encrypts entry payloads (v3+).
	EncryptData bool `json:"encrypt_data,omitempty" yaml:"encrypt_data,omitempty"`
}

// PackOptions configures Pack, PackFile and the entries added by Append.
type PackOptions struct {
	// OnEntryDone runs on the writing goroutine after each entry lands in the archive.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Writer configures the underlying archive writer.
	Writer WriterOptions `json:"writer,omitzero" yaml:"writer,omitzero"`
	// MountPoint is the index mount point. Default is DefaultMountPoint.
	MountPoint string `json:"mount_point,omitempty" yaml:"mount_point,omitempty"`
	// Compress selects entries worth compressing; later rules win.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions tune Compress matching; default is case-insensitive, exclude by default.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// MaxWorkers bounds parallel staging (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// MinCompressSize stores smaller entries as is. Default is DefaultMinCompressSize.
	MinCompressSize int64 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
	// Version is the archive version. Default is VersionLatest.
	Version Version `json:"version,omitempty" yaml:"version,omitempty"`
}

// PackResult summarizes one Pack or Append run.
type PackResult struct {
	// WrittenEntries counts entries written by this run.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// DataSize is total bytes of data headers and payloads written.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// IndexSize is total bytes of index sections and footer written.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// RawBytes is total input bytes.
	RawBytes int64 `json:"raw_bytes,omitempty" yaml:"raw_bytes,omitempty"`
	// CompressedBytes is total stored bytes of compressed entries.
	CompressedBytes int64 `json:"compressed_bytes,omitempty" yaml:"compressed_bytes,omitempty"`
	// CompressedEntries counts entries stored with a compression method.
	CompressedEntries int `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	// Duration covers staging, writing and index emission.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// AppendOptions configures in-place archive append.
type AppendOptions struct {
	// PackOptions are applied for added entries; Version and MountPoint come from the archive.
	PackOptions PackOptions `json:"pack_options,omitzero" yaml:"pack_options,omitzero"`
	// Reader configures parsing of the existing archive; its key is reused for writing.
	Reader ReaderOptions `json:"reader,omitzero" yaml:"reader,omitzero"`
	// BackupKeep is the number of backup generations.
	// 0 disables backup and rollback, 1 keeps only `<archive>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
	// Replace allows inputs to shadow existing entries; otherwise such inputs fail.
	Replace bool `json:"replace,omitempty" yaml:"replace,omitempty"`
}

// ReaderOptions configures archive parsing and listing behavior.
type ReaderOptions struct {
	// Logger receives version probing events; nil disables logging.
	Logger *zerolog.Logger `json:"-" yaml:"-"`
	// Key is the AES-256 key for encrypted index and payloads.
	Key []byte `json:"-" yaml:"-"`
	// EntryPathPrefix limits listed entries to a directory or exact path.
	EntryPathPrefix string `json:"entry_path_prefix,omitempty" yaml:"entry_path_prefix,omitempty"`
	// MinEntrySize hides entries whose uncompressed size is smaller.
	MinEntrySize uint64 `json:"min_entry_size,omitempty" yaml:"min_entry_size,omitempty"`
	// Version selects the archive version; VersionAuto probes newest to oldest.
	Version Version `json:"version,omitempty" yaml:"version,omitempty"`
	// VerifyHashes checks SHA1 of the index and of stored payloads on read.
	VerifyHashes bool `json:"verify_hashes,omitempty" yaml:"verify_hashes,omitempty"`
	// EnableJunkFilter hides delete records and entries with unusable paths.
	EnableJunkFilter bool `json:"enable_junk_filter,omitempty" yaml:"enable_junk_filter,omitempty"`
	// FilterASCIIOnly hides entries whose path contains non-ASCII bytes.
	FilterASCIIOnly bool `json:"filter_ascii_only,omitempty" yaml:"filter_ascii_only,omitempty"`
}

// ExtractOptions configures Reader.Extract.
type ExtractOptions struct {
	// OnEntryDone runs on a worker goroutine once an output file is closed.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// FileMode decides how existing output files are treated. Default is ExtractFileModeAuto.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Entries limits extraction to selected metadata list; nil means all listed entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// Rules select entries by path; nil means all.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// RulesMatcherOptions control selection rule matching; default action is include.
	RulesMatcherOptions pathrules.MatcherOptions `json:"rules_matcher_options,omitzero" yaml:"rules_matcher_options,omitzero"`
	// MaxWorkers bounds parallel writers; 0 means GOMAXPROCS.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames writes archive paths unchanged instead of sanitized names.
	// Rooted or escaping paths still fail.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
}

// ExtractFileMode is the output file policy of Extract.
type ExtractFileMode string

// Extract file policies.
const (
	// ExtractFileModeAuto creates new files and truncates existing ones.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeOverwriteSmart writes over existing files in place, cutting any longer tail.
	ExtractFileModeOverwriteSmart ExtractFileMode = "overwrite_smart"
	// ExtractFileModeTruncate always opens with O_TRUNC.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly fails on any existing file.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued writer options with defaults.
func (opts *WriterOptions) applyDefaults() {
	if opts.BufferSize < 4096 {
		opts.BufferSize = DefaultWriteBuffer
	}

	if len(opts.Compression) == 0 {
		opts.Compression = []Compression{CompressionZlib}
	}

	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
}

// applyDefaults also defaults the embedded writer options.
func (opts *PackOptions) applyDefaults() {
	opts.Writer.applyDefaults()

	if opts.Version == VersionAuto {
		opts.Version = VersionLatest
	}

	if opts.MountPoint == "" {
		opts.MountPoint = DefaultMountPoint
	}

	if opts.MinCompressSize == 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	opts.CompressMatcherOptions = defaultMatcherOptions(opts.CompressMatcherOptions)
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.RulesMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.RulesMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}
}

// loggerOrNop dereferences l, falling back to a disabled logger.
func loggerOrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}

	return *l
}
