package pak

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPartialEntry_MultiBlock(t *testing.T) {
	t.Parallel()

	data := compressiblePayload(3*1024 + 100)
	p, err := BuildPartialEntry(V11, data, BuildOptions{
		Compression: []Compression{CompressionZlib},
		BlockSize:   1024,
	})
	require.NoError(t, err)
	assert.Equal(t, CompressionZlib, p.Compression())
	assert.Equal(t, uint64(len(data)), p.Uncompressed())
	assert.Equal(t, p.Compressed(), p.StoredSize())

	var stored []byte
	for _, c := range p.chunks {
		stored = append(stored, c...)
	}
	assert.Equal(t, ComputeHash(stored), p.Hash())

	slots := newCompressionSlots(V11, nil)
	e, err := p.finalize(5000, slots)
	require.NoError(t, err)

	assert.Equal(t, uint64(5000), e.Offset)
	assert.Equal(t, uint32(1), e.CompressionIndex)
	assert.Equal(t, uint32(1024), e.CompressionBlockSize)
	assert.Equal(t, []Compression{CompressionZlib}, slots.list())
	require.Len(t, e.Blocks, 4)

	base := EntrySerializedSize(V11, true, 4)
	assert.Equal(t, base, e.Blocks[0].Start)
	for i := 1; i < len(e.Blocks); i++ {
		assert.Equal(t, e.Blocks[i-1].End, e.Blocks[i].Start)
	}
	assert.Equal(t, e.Compressed, e.Blocks[3].End-base)
	assert.True(t, e.canEncode(V11))

	for i, b := range e.Blocks {
		chunk := stored[b.Start-base : b.End-base]
		want := data[i*1024 : min((i+1)*1024, len(data))]
		got, err := Decompress(CompressionZlib, chunk, len(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBuildPartialEntry_AbsoluteBlocks(t *testing.T) {
	t.Parallel()

	data := compressiblePayload(2048)
	opts := BuildOptions{Compression: []Compression{CompressionZlib}, BlockSize: 1024}

	relative, err := BuildPartialEntry(V5, data, opts)
	require.NoError(t, err)
	absolute, err := BuildPartialEntry(V4, data, opts)
	require.NoError(t, err)

	eRel, err := relative.finalize(777, newCompressionSlots(V5, nil))
	require.NoError(t, err)
	eAbs, err := absolute.finalize(777, newCompressionSlots(V4, nil))
	require.NoError(t, err)

	require.Len(t, eRel.Blocks, 2)
	require.Len(t, eAbs.Blocks, 2)
	assert.Equal(t, EntrySerializedSize(V5, true, 2), eRel.Blocks[0].Start)
	assert.Equal(t, 777+EntrySerializedSize(V4, true, 2), eAbs.Blocks[0].Start)
	assert.Equal(t, eRel.Blocks[1].Len(), eAbs.Blocks[1].Len())
}

func TestBuildPartialEntry_NoBlocksBeforeCompressionEncryption(t *testing.T) {
	t.Parallel()

	data := compressiblePayload(200 * 1024)
	p, err := BuildPartialEntry(V2, data, BuildOptions{
		Compression: []Compression{CompressionZlib},
		BlockSize:   1024,
	})
	require.NoError(t, err)
	require.Len(t, p.chunks, 1)

	e, err := p.finalize(0, newCompressionSlots(V2, nil))
	require.NoError(t, err)
	assert.Nil(t, e.Blocks)
	assert.Zero(t, e.CompressionBlockSize)
	assert.Equal(t, uint32(1), e.CompressionIndex)

	got, err := Decompress(CompressionZlib, p.chunks[0], len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBuildPartialEntry_Encrypted(t *testing.T) {
	t.Parallel()

	data := compressiblePayload(5000)
	p, err := BuildPartialEntry(V11, data, BuildOptions{
		Key:         testKey,
		Compression: []Compression{CompressionZstd},
		BlockSize:   2048,
	})
	require.NoError(t, err)
	require.Len(t, p.chunks, 3)
	for _, c := range p.chunks {
		assert.Zero(t, len(c)%16)
	}

	e, err := p.finalize(0, newCompressionSlots(V11, nil))
	require.NoError(t, err)
	assert.True(t, e.IsEncrypted())
	for i := 1; i < len(e.Blocks); i++ {
		assert.Equal(t, e.Blocks[i-1].Start+align16(e.Blocks[i-1].Len()), e.Blocks[i].Start)
	}
	assert.Equal(t, e.Blocks[2].End-e.Blocks[0].Start, e.Compressed)
	assert.True(t, e.canEncode(V11))

	first := bytes.Clone(p.chunks[0])
	require.NoError(t, decryptECB(testKey, first))
	got, err := Decompress(CompressionZstd, first[:e.Blocks[0].Len()], 2048)
	require.NoError(t, err)
	assert.Equal(t, data[:2048], got)
}

func TestBuildPartialEntry_StoredEncrypted(t *testing.T) {
	t.Parallel()

	data := []byte("seventeen bytes!!")
	p, err := BuildPartialEntry(V4, data, BuildOptions{Key: testKey})
	require.NoError(t, err)
	assert.Equal(t, uint64(17), p.Compressed())
	assert.Equal(t, uint64(32), p.StoredSize())
	assert.Equal(t, ComputeHash(data), p.Hash())

	e, err := p.finalize(10, newCompressionSlots(V4, nil))
	require.NoError(t, err)
	assert.Zero(t, e.CompressionIndex)
	assert.True(t, e.IsEncrypted())
	assert.Nil(t, e.Blocks)
}

func TestBuildPartialEntry_Errors(t *testing.T) {
	t.Parallel()

	_, err := BuildPartialEntry(V2, []byte("x"), BuildOptions{Key: testKey})
	require.ErrorIs(t, err, ErrEncryptionNotSupported)

	_, err = BuildPartialEntry(V11, []byte("x"), BuildOptions{Key: testKey[:8]})
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = BuildPartialEntry(VersionAuto, []byte("x"), BuildOptions{})
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = BuildPartialEntry(V11, []byte("x"), BuildOptions{Compression: []Compression{CompressionOodle}})
	require.ErrorIs(t, err, ErrCompressionNotSupported)
}

func TestBuildPartialEntry_EmptyIsStored(t *testing.T) {
	t.Parallel()

	p, err := BuildPartialEntry(V11, nil, BuildOptions{Compression: []Compression{CompressionZlib}})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, p.Compression())
	assert.Zero(t, p.Compressed())
	assert.Equal(t, ComputeHash(nil), p.Hash())
}

func TestCompressionSlots(t *testing.T) {
	t.Parallel()

	t.Run("named", func(t *testing.T) {
		t.Parallel()

		s := newCompressionSlots(V8A, nil)
		for i, c := range []Compression{CompressionZstd, CompressionZlib, CompressionGzip, CompressionLZ4} {
			index, err := s.resolve(c)
			require.NoError(t, err)
			assert.Equal(t, uint32(i+1), index)
		}

		index, err := s.resolve(CompressionZlib)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), index)

		_, err = s.resolve(CompressionOodle)
		require.ErrorIs(t, err, ErrCompressionSlot)
	})

	t.Run("legacy", func(t *testing.T) {
		t.Parallel()

		s := newCompressionSlots(V5, nil)
		index, err := s.resolve(CompressionGzip)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), index)

		_, err = s.resolve(CompressionZstd)
		require.ErrorIs(t, err, ErrCompressionSlot)
	})

	t.Run("existing hole", func(t *testing.T) {
		t.Parallel()

		existing := []Compression{CompressionZlib, CompressionNone, CompressionNone, CompressionNone, CompressionNone}
		s := newCompressionSlots(V11, existing)
		index, err := s.resolve(CompressionLZ4)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), index)
		assert.Equal(t, CompressionNone, existing[1])
		assert.Equal(t, CompressionLZ4, s.list()[1])
	})
}

func TestLookupSlot(t *testing.T) {
	t.Parallel()

	methods := []Compression{CompressionZlib, CompressionZstd}
	assert.Equal(t, CompressionZstd, lookupSlot(methods, &Entry{CompressionIndex: 2}))
	assert.Equal(t, CompressionNone, lookupSlot(methods, &Entry{CompressionIndex: 3}))
	assert.Equal(t, CompressionNone, lookupSlot(methods, &Entry{}))
}

func TestEntryMethod(t *testing.T) {
	t.Parallel()

	methods := []Compression{CompressionZlib, CompressionNone, CompressionZstd}

	got, err := entryMethod(methods, &Entry{})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, got)

	got, err = entryMethod(methods, &Entry{CompressionIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, got)

	_, err = entryMethod(methods, &Entry{CompressionIndex: 2})
	require.ErrorIs(t, err, ErrCompressionNotSupported)

	_, err = entryMethod(methods, &Entry{CompressionIndex: 4})
	require.ErrorIs(t, err, ErrCorruptIndex)
}
