// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSegment(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", 400)
	gotLong, err := sanitizeSegment(longName)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(gotLong), maxSegmentLen)
	assert.Contains(t, gotLong, "~")

	testCases := []struct {
		in   string
		want string
	}{
		{in: "CON.txt", want: "_CON.txt"},
		{in: "  COM8.c  ", want: "_COM8.c"},
		{in: "nul", want: "_nul"},
		{in: "CLOCK$.cfg", want: "_CLOCK$.cfg"},
		{in: "a:b?.txt", want: "a_b_.txt"},
		{in: `x<y>|z*"`, want: "x_y__z__"},
		{in: "name. ", want: "name"},
		{in: "..", want: "_"},
		{in: "...", want: "_"},
		{in: "a\x1b[31m.txt", want: "a_[31m.txt"},
		{in: "name\u009b0m.txt", want: "name_0m.txt"},
		{in: "a\x7fb.txt", want: "a_b.txt"},
		{in: "a\u200fb.txt", want: "a_b.txt"},
		{in: "Level.umap", want: "Level.umap"},
	}

	for _, tc := range testCases {
		got, err := sanitizeSegment(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestIsDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.txt", want: true},
		{name: "LPT9.log", want: true},
		{name: "conout$", want: true},
		{name: "normal.txt", want: false},
		{name: "_con.txt", want: false},
		{name: "com10", want: false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, isDeviceName(tc.name), tc.name)
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Content/Maps/Level.umap", want: "Content/Maps/Level.umap"},
		{in: "../a/CON", want: "a/_CON"},
		{in: `a\b:c`, want: "a/b_c"},
		{in: "/Game/ trailing. /x.txt", want: "Game/trailing/x.txt"},
	}

	for _, tc := range testCases {
		got, err := SanitizePath(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestSanitizeOutputNames_Unique(t *testing.T) {
	t.Parallel()

	entries := []EntryInfo{
		{Path: "x.txt"},
		{Path: "X.TXT"},
		{Path: "x.TXT"},
		{Path: "../up.txt", Offset: 7},
	}

	got, err := sanitizeOutputNames(entries)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "x.txt", got[0].Path)
	assert.Equal(t, "X~2.TXT", got[1].Path)
	assert.Equal(t, "x~3.TXT", got[2].Path)
	assert.Equal(t, "_/up.txt", got[3].Path)
	assert.Equal(t, uint64(7), got[3].Offset)

	assert.Equal(t, "X.TXT", entries[1].Path)
}

func TestNumberedName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file~2.txt", numberedName("file.txt", 2))
	assert.Equal(t, "noext~10", numberedName("noext", 10))

	long := numberedName(strings.Repeat("b", 300)+".bin", 3)
	assert.LessOrEqual(t, len(long), maxSegmentLen)
	assert.True(t, strings.HasSuffix(long, "~3.bin"))
}

func TestHashShorten(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", hashShorten("abc", 10))
	assert.Equal(t, "abcdefgh", hashShorten("abcdefghijklmnop", 8))

	value := strings.Repeat("z", 64)
	first := hashShorten(value, 20)
	assert.Len(t, first, 20)
	assert.Equal(t, first, hashShorten(value, 20))
	assert.NotEqual(t, first, hashShorten(value+"y", 20))
}
