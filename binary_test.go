package pak

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_PakStringLayout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want []byte
	}{
		{name: "empty", in: "", want: []byte{1, 0, 0, 0, 0}},
		{name: "ascii", in: "abc", want: []byte{4, 0, 0, 0, 'a', 'b', 'c', 0}},
		{name: "utf16", in: "é", want: []byte{0xfe, 0xff, 0xff, 0xff, 0xe9, 0, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var enc encoder
			enc.PakString(tc.in)
			assert.Equal(t, tc.want, enc.Bytes())
			assert.Equal(t, int64(enc.Len()), stringSize(tc.in))

			d := newBytesDecoder(enc.Bytes())
			assert.Equal(t, tc.in, d.PakString())
			require.NoError(t, d.Err())
		})
	}
}

func TestDecoder_PakStringZeroLength(t *testing.T) {
	t.Parallel()

	d := newBytesDecoder([]byte{0, 0, 0, 0})
	assert.Empty(t, d.PakString())
	require.NoError(t, d.Err())
	assert.Equal(t, int64(4), d.Offset())
}

func TestDecoder_PakStringRejectsOversizedLength(t *testing.T) {
	t.Parallel()

	d := newBytesDecoder([]byte{0xff, 0xff, 0xff, 0x0f, 'a'})
	assert.Empty(t, d.PakString())
	require.ErrorIs(t, d.Err(), io.ErrUnexpectedEOF)
}

func TestDecoder_Primitives(t *testing.T) {
	t.Parallel()

	var enc encoder
	enc.U8(7)
	enc.U32(0xdeadbeef)
	enc.I32(-5)
	enc.U64(1 << 40)
	enc.Bool(true)
	enc.Hash(ComputeHash([]byte("x")))

	d := newBytesDecoder(enc.Bytes())
	assert.Equal(t, uint8(7), d.U8())
	assert.Equal(t, uint32(0xdeadbeef), d.U32())
	assert.Equal(t, int32(-5), d.I32())
	assert.Equal(t, uint64(1<<40), d.U64())
	assert.True(t, d.Bool())
	assert.Equal(t, ComputeHash([]byte("x")), d.Hash())
	require.NoError(t, d.Err())
	assert.Equal(t, int64(enc.Len()), d.Offset())

	// reads past the end keep the first error
	assert.Zero(t, d.U32())
	require.Error(t, d.Err())
}

func TestDecoder_BoolRejectsOtherBytes(t *testing.T) {
	t.Parallel()

	d := newBytesDecoder([]byte{2})
	assert.False(t, d.Bool())
	require.ErrorIs(t, d.Err(), ErrInvalidBool)
}

func TestDecoder_CountBoundedByRemainingBytes(t *testing.T) {
	t.Parallel()

	var enc encoder
	enc.U32(1000)
	enc.U64(0)

	d := newBytesDecoder(enc.Bytes())
	assert.Zero(t, d.Count(16))
	require.ErrorIs(t, d.Err(), ErrSizeOverflow)
}

func TestIsASCII(t *testing.T) {
	t.Parallel()

	assert.True(t, isASCII("Content/Maps/a.umap"))
	assert.False(t, isASCII("Content/Карта.umap"))
}
