package pak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: "", want: "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709"},
		{in: "abc", want: "A9993E364706816ABA3E25717850C26C9CD0D89D"},
	}

	for _, tc := range testCases {
		h := ComputeHash([]byte(tc.in))
		assert.Equal(t, tc.want, h.String())
		assert.False(t, h.IsZero())
	}
}

func TestNewHash(t *testing.T) {
	t.Parallel()

	raw := make([]byte, HashSize)
	raw[0] = 0xab
	h, err := NewHash(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), h[0])

	assert.True(t, Hash{}.IsZero())

	_, err = NewHash(make([]byte, 19))
	require.ErrorIs(t, err, ErrInvalidHashLength)

	_, err = NewHash(make([]byte, 21))
	require.ErrorIs(t, err, ErrInvalidHashLength)
}

func TestHash_MarshalText(t *testing.T) {
	t.Parallel()

	text, err := ComputeHash([]byte("abc")).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "A9993E364706816ABA3E25717850C26C9CD0D89D", string(text))
}
