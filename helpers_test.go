package pak

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/woozymasta/pathrules"
)

// testKey is a fixed AES-256 key for encryption tests.
var testKey = []byte("0123456789abcdef0123456789ABCDEF")

// writableVersions are dialects exercised by archive round trips.
var writableVersions = []Version{V0, V1, V2, V3, V4, V5, V6, V7, V8A, V8B, V9, V10, V11}

// testFile is one archive entry used by fixtures.
type testFile struct {
	path     string
	data     []byte
	compress bool
}

// sampleFiles returns a small tree with stored, compressed, multi-block and empty entries.
func sampleFiles() []testFile {
	return []testFile{
		{path: "a.txt", data: []byte("hello pak")},
		{path: "Content/big.bin", data: compressiblePayload(300 * 1024), compress: true},
		{path: "Content/Maps/level.umap", data: bytes.Repeat([]byte("level data "), 64), compress: true},
		{path: "Content/empty.txt", data: []byte{}},
		{path: "Content/Maps/note.txt", data: []byte("stored note")},
	}
}

// compressiblePayload returns deterministic data of size n that compresses well.
func compressiblePayload(n int) []byte {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString("line ")
		b.WriteByte(byte('a' + i%26))
		b.WriteString(" of the payload\n")
	}

	return []byte(b.String()[:n])
}

// buildArchive writes files with a Writer and returns archive bytes.
func buildArchive(tb testing.TB, v Version, opts WriterOptions, files []testFile) []byte {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "test.pak")
	f, err := os.Create(path)
	require.NoError(tb, err)
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f, v, DefaultMountPoint, opts)
	require.NoError(tb, err)
	for _, file := range files {
		require.NoError(tb, w.WriteFile(file.path, file.compress, file.data))
	}
	require.NoError(tb, w.Finish())
	require.NoError(tb, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(tb, err)
	return data
}

// writeArchiveFile writes archive bytes to a temp file and returns its path.
func writeArchiveFile(tb testing.TB, data []byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "archive.pak")
	require.NoError(tb, os.WriteFile(path, data, 0o600))
	return path
}

// openBytes parses archive bytes.
func openBytes(tb testing.TB, data []byte, opts ReaderOptions) *Reader {
	tb.Helper()

	r, err := NewReader(bytes.NewReader(data), int64(len(data)), opts)
	require.NoError(tb, err)
	return r
}

// inputsFromFiles converts fixtures to pack inputs.
func inputsFromFiles(files []testFile) []Input {
	inputs := make([]Input, 0, len(files))
	for _, f := range files {
		data := f.data
		inputs = append(inputs, Input{
			Path:     f.path,
			SizeHint: int64(len(data)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
	}

	return inputs
}

// includeRules builds include rules from raw patterns for concise test setup.
func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return rules
}

// sectionsReader serves index sections from a buffer that starts at base.
func sectionsReader(buf []byte, base uint64) sectionReader {
	return func(ref sectionRef) ([]byte, error) {
		start := ref.offset - base
		if start+ref.size > uint64(len(buf)) {
			return nil, io.ErrUnexpectedEOF
		}

		return buf[start : start+ref.size], nil
	}
}
