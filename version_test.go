package pak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_MajorAndFooterSize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		version Version
		major   VersionMajor
		footer  int64
	}{
		{V0, MajorUnknown, 44},
		{V1, MajorInitial, 44},
		{V2, MajorNoTimestamps, 44},
		{V3, MajorCompressionEncryption, 44},
		{V4, MajorIndexEncryption, 45},
		{V5, MajorRelativeChunkOffsets, 45},
		{V6, MajorDeleteRecords, 45},
		{V7, MajorEncryptionKeyGUID, 61},
		{V8A, MajorFNameBasedCompression, 189},
		{V8B, MajorFNameBasedCompression, 221},
		{V9, MajorFrozenIndex, 222},
		{V10, MajorPathHashIndex, 221},
		{V11, MajorFnv64BugFix, 221},
	}

	for _, tc := range testCases {
		t.Run(tc.version.String(), func(t *testing.T) {
			t.Parallel()

			assert.True(t, tc.version.Valid())
			assert.Equal(t, tc.major, tc.version.Major())
			assert.Equal(t, tc.footer, tc.version.FooterSize())
		})
	}
}

func TestVersion_AutoIsNotConcrete(t *testing.T) {
	t.Parallel()

	assert.False(t, VersionAuto.Valid())
	assert.Equal(t, MajorUnknown, VersionAuto.Major())
	assert.Equal(t, V11, VersionLatest)
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want Version
	}{
		{in: "", want: VersionAuto},
		{in: "auto", want: VersionAuto},
		{in: "V11", want: V11},
		{in: "v8a", want: V8A},
		{in: " 8B ", want: V8B},
		{in: "3", want: V3},
	}

	for _, tc := range testCases {
		got, err := ParseVersion(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseVersion("V12")
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = ParseVersion("8")
	require.ErrorIs(t, err, ErrInvalidVersion)
}

func TestVersion_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range VersionsNewestFirst() {
		text, err := v.MarshalText()
		require.NoError(t, err)

		var got Version
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, v, got)
	}
}

func TestVersionsNewestFirst(t *testing.T) {
	t.Parallel()

	versions := VersionsNewestFirst()
	require.Len(t, versions, 13)
	assert.Equal(t, V11, versions[0])
	assert.Equal(t, V0, versions[len(versions)-1])
	for i := 1; i < len(versions); i++ {
		assert.Less(t, versions[i], versions[i-1])
	}
}
