package pak

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireSampleContent checks every sample file reads back intact.
func requireSampleContent(t *testing.T, r *Reader, files []testFile) {
	t.Helper()

	for _, f := range files {
		got, err := r.ReadEntry(f.path)
		require.NoError(t, err, f.path)
		assert.Equal(t, f.data, got, f.path)
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range writableVersions {
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()

			files := sampleFiles()
			data := buildArchive(t, v, WriterOptions{}, files)

			for _, version := range []Version{v, VersionAuto} {
				r := openBytes(t, data, ReaderOptions{Version: version, VerifyHashes: true})
				assert.Equal(t, v, r.Version())
				assert.Equal(t, DefaultMountPoint, r.MountPoint())
				assert.Equal(t, []string{
					"Content/Maps/level.umap",
					"Content/Maps/note.txt",
					"Content/big.bin",
					"Content/empty.txt",
					"a.txt",
				}, r.Paths())

				requireSampleContent(t, r, files)
			}

			r := openBytes(t, data, ReaderOptions{Version: v})
			big, err := r.Entry("Content/big.bin")
			require.NoError(t, err)
			assert.True(t, big.IsCompressed())
			assert.Less(t, big.Compressed, big.Uncompressed)
			if v.Major() >= MajorCompressionEncryption {
				assert.Len(t, big.Blocks, 3)
				assert.Equal(t, DefaultBlockSize, big.CompressionBlockSize)
			} else {
				assert.Empty(t, big.Blocks)
			}

			plain, err := r.Entry("a.txt")
			require.NoError(t, err)
			assert.Zero(t, plain.Offset)
			assert.False(t, plain.IsCompressed())

			info := r.Info()
			assert.Equal(t, v, info.Version)
			assert.Equal(t, 5, info.Entries)
			assert.Equal(t, int64(len(data)), info.Size)
			assert.False(t, info.EncryptedIndex)
			assert.Nil(t, info.EncryptionGUID)
			assert.LessOrEqual(t, info.IndexOffset+info.IndexSize, uint64(len(data)))
			if v.Major() >= MajorPathHashIndex {
				require.NotNil(t, info.PathHashSeed)
			} else {
				assert.Nil(t, info.PathHashSeed)
			}
		})
	}
}

func TestArchive_Methods(t *testing.T) {
	t.Parallel()

	for _, method := range []Compression{CompressionZlib, CompressionGzip, CompressionZstd, CompressionLZ4} {
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()

			files := sampleFiles()
			data := buildArchive(t, V11, WriterOptions{Compression: []Compression{method}}, files)
			r := openBytes(t, data, ReaderOptions{VerifyHashes: true})
			requireSampleContent(t, r, files)

			compressions := r.Compressions()
			require.Len(t, compressions, 5)
			assert.Equal(t, method, compressions[0])
			assert.Equal(t, CompressionNone, compressions[1])

			for _, e := range r.Entries() {
				if e.Path == "Content/big.bin" {
					assert.Equal(t, method, e.Compression)
				}
			}
		})
	}
}

func TestArchive_LegacyGzipSlot(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	data := buildArchive(t, V5, WriterOptions{Compression: []Compression{CompressionGzip}}, files)
	r := openBytes(t, data, ReaderOptions{})
	requireSampleContent(t, r, files)

	e, err := r.Entry("Content/big.bin")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), e.CompressionIndex)
}

func TestArchive_LegacyRejectsNamedMethods(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.pak"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f, V7, "/", WriterOptions{Compression: []Compression{CompressionZstd}})
	require.NoError(t, err)
	require.ErrorIs(t, w.WriteFile("a.bin", true, compressiblePayload(4096)), ErrCompressionSlot)
}

func TestArchive_PathHashSeed(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, V10, WriterOptions{PathHashSeed: 0xfeedface}, sampleFiles())
	r := openBytes(t, data, ReaderOptions{})

	seed, ok := r.PathHashSeed()
	require.True(t, ok)
	assert.Equal(t, uint64(0xfeedface), seed)
	require.NotNil(t, r.Info().PathHashSeed)
	assert.Equal(t, uint64(0xfeedface), *r.Info().PathHashSeed)
}

func TestArchive_Encrypted(t *testing.T) {
	t.Parallel()

	for _, v := range []Version{V4, V7, V8B, V9, V11} {
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()

			files := sampleFiles()
			data := buildArchive(t, v, WriterOptions{
				Key:          testKey,
				EncryptIndex: true,
				EncryptData:  true,
			}, files)
			assert.NotContains(t, string(data), "Content/big.bin")

			r := openBytes(t, data, ReaderOptions{Key: testKey, VerifyHashes: true})
			assert.Equal(t, v, r.Version())
			assert.True(t, r.EncryptedIndex())
			requireSampleContent(t, r, files)

			for _, e := range r.Entries() {
				assert.True(t, e.Encrypted, e.Path)
			}

			_, err := NewReader(bytes.NewReader(data), int64(len(data)), ReaderOptions{Version: v})
			require.ErrorIs(t, err, ErrEncrypted)

			_, err = NewReader(bytes.NewReader(data), int64(len(data)), ReaderOptions{})
			require.ErrorIs(t, err, ErrUnsupportedOrEncrypted)
		})
	}
}

func TestArchive_EncryptedDataOnly(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	data := buildArchive(t, V3, WriterOptions{Key: testKey, EncryptData: true}, files)

	r := openBytes(t, data, ReaderOptions{Key: testKey, VerifyHashes: true})
	requireSampleContent(t, r, files)

	locked := openBytes(t, data, ReaderOptions{})
	assert.False(t, locked.EncryptedIndex())
	_, err := locked.ReadEntry("a.txt")
	require.ErrorIs(t, err, ErrEncrypted)

	got, err := locked.ReadEntry("Content/empty.txt")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArchive_VerifyHashes(t *testing.T) {
	t.Parallel()

	for _, v := range []Version{V2, V8A, V11} {
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()

			data := buildArchive(t, v, WriterOptions{}, sampleFiles())

			payload := bytes.Clone(data)
			payload[EntrySerializedSize(v, false, 0)] ^= 0xff

			r := openBytes(t, payload, ReaderOptions{Version: v})
			got, err := r.ReadEntry("a.txt")
			require.NoError(t, err)
			assert.NotEqual(t, []byte("hello pak"), got)

			r = openBytes(t, payload, ReaderOptions{Version: v, VerifyHashes: true})
			_, err = r.ReadEntry("a.txt")
			require.ErrorIs(t, err, ErrHashMismatch)

			info := openBytes(t, data, ReaderOptions{Version: v}).Info()
			index := bytes.Clone(data)
			index[info.IndexOffset+info.IndexSize-1] ^= 0xff

			_, err = NewReader(bytes.NewReader(index), int64(len(index)), ReaderOptions{Version: v, VerifyHashes: true})
			require.ErrorIs(t, err, ErrHashMismatch)
		})
	}
}

func TestReadEntry_UnresolvedCompression(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	data := buildArchive(t, V8B, WriterOptions{}, files)

	t.Run("UnknownName", func(t *testing.T) {
		t.Parallel()

		patched := bytes.Clone(data)
		footer := patched[int64(len(patched))-V8B.FooterSize():]
		at := bytes.Index(footer, []byte("Zlib"))
		require.GreaterOrEqual(t, at, 0)
		copy(footer[at:], "Zxxx")

		r := openBytes(t, patched, ReaderOptions{})
		assert.Equal(t, CompressionNone, r.Compressions()[0])

		_, err := r.ReadEntry("Content/big.bin")
		require.ErrorIs(t, err, ErrCompressionNotSupported)

		got, err := r.ReadEntry("a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello pak"), got)
	})

	t.Run("SlotOutOfRange", func(t *testing.T) {
		t.Parallel()

		r := openBytes(t, data, ReaderOptions{})
		e, err := r.Entry("Content/big.bin")
		require.NoError(t, err)

		e.CompressionIndex = 10
		_, err = r.readEntryData(&e)
		require.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("StoredSizeMismatch", func(t *testing.T) {
		t.Parallel()

		r := openBytes(t, data, ReaderOptions{})
		e, err := r.Entry("a.txt")
		require.NoError(t, err)

		e.Uncompressed++
		_, err = r.readEntryData(&e)
		require.ErrorIs(t, err, ErrCorruptIndex)
	})
}

func TestNewReader_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewReader(nil, 0, ReaderOptions{})
	require.ErrorIs(t, err, ErrNilReader)

	_, err = NewReader(bytes.NewReader([]byte("tiny")), 4, ReaderOptions{})
	require.ErrorIs(t, err, ErrUnsupportedOrEncrypted)

	_, err = NewReader(bytes.NewReader(nil), 0, ReaderOptions{Key: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidKey)

	data := buildArchive(t, V11, WriterOptions{}, sampleFiles())
	_, err = NewReader(bytes.NewReader(data), int64(len(data)), ReaderOptions{Version: V9})
	require.Error(t, err)

	r := openBytes(t, data, ReaderOptions{})
	_, err = r.ReadEntry("missing.txt")
	require.ErrorIs(t, err, ErrMissingEntry)
	_, err = r.Entry("missing.txt")
	require.ErrorIs(t, err, ErrMissingEntry)
}

func TestReader_Close(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, buildArchive(t, V11, WriterOptions{}, sampleFiles()))
	r, err := Open(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.ExtractEntry("a.txt", &buf))
	assert.Equal(t, "hello pak", buf.String())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.ReadEntry("a.txt")
	require.ErrorIs(t, err, ErrClosed)
}

func TestNewWriter_Errors(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.pak"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	testCases := []struct {
		want    error
		name    string
		opts    WriterOptions
		version Version
	}{
		{name: "invalid version", version: VersionAuto, want: ErrInvalidVersion},
		{name: "index encryption on v3", version: V3, opts: WriterOptions{Key: testKey, EncryptIndex: true}, want: ErrEncryptionNotSupported},
		{name: "data encryption on v2", version: V2, opts: WriterOptions{Key: testKey, EncryptData: true}, want: ErrEncryptionNotSupported},
		{name: "missing key", version: V11, opts: WriterOptions{EncryptData: true}, want: ErrInvalidKey},
	}

	for _, tc := range testCases {
		_, err := NewWriter(f, tc.version, "/", tc.opts)
		require.ErrorIs(t, err, tc.want, tc.name)
	}

	_, err = NewWriter(nil, V11, "/", WriterOptions{})
	require.ErrorIs(t, err, ErrNilWriter)
}

func TestWriter_Lifecycle(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.pak"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f, V11, "/", WriterOptions{})
	require.NoError(t, err)
	assert.Equal(t, V11, w.Version())

	p, err := w.BuildEntry([]byte("data"), false)
	require.NoError(t, err)
	e, err := w.WriteEntry("a.txt", p)
	require.NoError(t, err)
	assert.Zero(t, e.Offset)
	assert.Equal(t, EntrySerializedSize(V11, false, 0)+4, w.Position())
	assert.Equal(t, 1, w.Len())

	_, err = w.WriteEntry("", p)
	require.ErrorIs(t, err, ErrInvalidEntryPath)

	foreign, err := BuildPartialEntry(V9, []byte("data"), BuildOptions{})
	require.NoError(t, err)
	_, err = w.WriteEntry("b.txt", foreign)
	require.ErrorIs(t, err, ErrInvalidVersion)

	require.NoError(t, w.Finish())
	require.ErrorIs(t, w.Finish(), ErrWriterFinished)
	require.ErrorIs(t, w.WriteFile("c.txt", false, nil), ErrWriterFinished)
}

// errStreamRejected is returned by rejectingStream writes.
var errStreamRejected = errors.New("stream rejected write")

// rejectingStream seeks freely and fails every write.
type rejectingStream struct{}

func (rejectingStream) Write([]byte) (int, error) { return 0, errStreamRejected }
func (rejectingStream) Seek(int64, int) (int64, error) { return 0, nil }

func TestWriter_FailedWriteIsSticky(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(rejectingStream{}, V11, "/", WriterOptions{BufferSize: 4096})
	require.NoError(t, err)

	err = w.WriteFile("big.bin", false, bytes.Repeat([]byte{7}, 16*1024))
	require.ErrorIs(t, err, errStreamRejected)
	assert.Zero(t, w.Position())
	assert.Zero(t, w.Len())

	err = w.WriteFile("a.txt", false, []byte("a"))
	require.ErrorIs(t, err, ErrWriterFailed)
	require.ErrorIs(t, err, errStreamRejected)
	assert.Zero(t, w.Len())

	err = w.Finish()
	require.ErrorIs(t, err, ErrWriterFailed)
	require.ErrorIs(t, err, errStreamRejected)
}

func TestReader_ToWriter(t *testing.T) {
	t.Parallel()

	for _, opts := range []WriterOptions{{}, {Key: testKey, EncryptIndex: true}} {
		t.Run(map[bool]string{false: "plain", true: "encrypted"}[opts.EncryptIndex], func(t *testing.T) {
			t.Parallel()

			files := sampleFiles()
			path := writeArchiveFile(t, buildArchive(t, V11, opts, files))

			r, err := OpenWithOptions(path, ReaderOptions{Key: opts.Key})
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			f, err := os.OpenFile(path, os.O_RDWR, 0)
			require.NoError(t, err)
			defer func() { _ = f.Close() }()

			w, err := r.ToWriter(f, WriterOptions{})
			require.NoError(t, err)
			assert.Equal(t, r.Info().IndexOffset, w.Position())
			require.NoError(t, w.WriteFile("added/new.txt", true, compressiblePayload(2048)))
			require.NoError(t, w.Finish())
			require.NoError(t, f.Truncate(int64(w.Position()))) //nolint:gosec // test archive size

			updated, err := OpenWithOptions(path, ReaderOptions{Key: opts.Key, VerifyHashes: true})
			require.NoError(t, err)
			defer func() { _ = updated.Close() }()

			assert.Equal(t, opts.EncryptIndex, updated.EncryptedIndex())
			assert.Len(t, updated.Paths(), len(files)+1)
			requireSampleContent(t, updated, files)

			got, err := updated.ReadEntry("added/new.txt")
			require.NoError(t, err)
			assert.Equal(t, compressiblePayload(2048), got)
		})
	}
}
