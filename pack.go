// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// packCopyBufferSize is per-stage temporary buffer used by payload reads.
const packCopyBufferSize = 64 * 1024

// packCopyBufferPool reuses payload copy buffers between staging goroutines.
var packCopyBufferPool = sync.Pool{
	New: func() any {
		return new([packCopyBufferSize]byte)
	},
}

// stagedInput is one input compressed and hashed ahead of its write slot.
type stagedInput struct {
	partial   *PartialEntry
	rawSize   int64
	candidate bool
}

// Pack writes an archive to out from the given inputs.
// Inputs are sorted by path and staged in parallel; entries are written in path order.
func Pack(ctx context.Context, out io.WriteSeeker, inputs []Input, opts PackOptions) (*PackResult, error) {
	if out == nil {
		return nil, ErrNilWriter
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	opts.applyDefaults()

	plan, err := preparePackPlan(inputs)
	if err != nil {
		return nil, err
	}

	w, err := NewWriter(out, opts.Version, opts.MountPoint, opts.Writer)
	if err != nil {
		return nil, err
	}

	return writePackPlan(ctx, w, plan, opts)
}

// PackFile writes an archive to outPath. The file is removed when packing fails.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create pak file: %w", err)
	}

	res, err := Pack(ctx, f, inputs, opts)
	if err == nil {
		if err = f.Sync(); err != nil {
			err = fmt.Errorf("sync pak file: %w", err)
		}
	}

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close pak file: %w", closeErr)
	}

	if err != nil {
		_ = os.Remove(outPath)
		return nil, err
	}

	return res, nil
}

// writePackPlan stages plan entries in parallel, writes them in order and finishes the archive.
func writePackPlan(ctx context.Context, w *Writer, plan []Input, opts PackOptions) (*PackResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	dataStart := w.Position()

	matcher, err := newPathMatcher(opts.Compress, opts.CompressMatcherOptions, ErrInvalidCompressPattern)
	if err != nil {
		return nil, err
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// window bounds staged entries held in memory ahead of the writer.
	window := make(chan struct{}, workers)
	results := make([]chan stagedInput, len(plan))
	for i := range results {
		results[i] = make(chan stagedInput, 1)
	}

	g.Go(func() error {
		for i := range plan {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}

			g.Go(func() error {
				staged, err := stagePackInput(w, plan[i], matcher, opts)
				if err != nil {
					return err
				}

				results[i] <- staged
				return nil
			})
		}

		return nil
	})

	res := &PackResult{}
	for i := range plan {
		var staged stagedInput
		select {
		case staged = <-results[i]:
		case <-gctx.Done():
			cancel()
			if err := g.Wait(); err != nil {
				return nil, err
			}

			return nil, gctx.Err()
		}

		e, err := w.WriteEntry(plan[i].Path, staged.partial)
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, err
		}

		<-window

		res.WrittenEntries++
		res.RawBytes += staged.rawSize
		if e.IsCompressed() {
			res.CompressedEntries++
			res.CompressedBytes += int64(e.Compressed) //nolint:gosec // bounded by input size
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Path:                 plan[i].Path,
				Compression:          staged.partial.Compression(),
				Offset:               e.Offset,
				Compressed:           e.Compressed,
				Uncompressed:         e.Uncompressed,
				CompressionCandidate: staged.candidate,
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dataEnd := w.Position()
	if err := w.Finish(); err != nil {
		return nil, err
	}

	res.DataSize = int64(dataEnd - dataStart)     //nolint:gosec // bounded by stream size
	res.IndexSize = int64(w.Position() - dataEnd) //nolint:gosec // bounded by stream size
	res.Duration = time.Since(startedAt)
	return res, nil
}

// stagePackInput reads one input and builds its staged entry.
func stagePackInput(w *Writer, in Input, matcher *pathMatcher, opts PackOptions) (stagedInput, error) {
	rc, err := openInputReader(in)
	if err != nil {
		return stagedInput{}, err
	}
	defer func() { _ = rc.Close() }()

	arr := packCopyBufferPool.Get().(*[packCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	defer packCopyBufferPool.Put(arr)

	data, err := readPayloadBounded(rc, math.MaxInt32, in.SizeHint, arr[:])
	if err != nil {
		return stagedInput{}, fmt.Errorf("read input %s: %w", in.Path, err)
	}

	candidate := matcher.Match(in.Path) && int64(len(data)) >= opts.MinCompressSize
	buildOpts := w.buildOptions(candidate)
	buildOpts.Timestamp = TimestampFromTime(in.ModTime)

	partial, err := BuildPartialEntry(w.version, data, buildOpts)
	if err != nil {
		return stagedInput{}, fmt.Errorf("build %s: %w", in.Path, err)
	}

	return stagedInput{
		partial:   partial,
		rawSize:   int64(len(data)),
		candidate: candidate,
	}, nil
}

// preparePackPlan normalizes and sorts pack inputs for deterministic output order.
func preparePackPlan(inputs []Input) ([]Input, error) {
	sorted := make([]Input, len(inputs))
	copy(sorted, inputs)

	for i := range sorted {
		normalizedPath, err := archiveEntryPath(sorted[i].Path)
		if err != nil {
			return nil, err
		}

		sorted[i].Path = normalizedPath
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	if err := validateUniqueEntryPaths(sorted); err != nil {
		return nil, err
	}

	return sorted, nil
}

// openInputReader opens source stream for one input.
func openInputReader(in Input) (io.ReadCloser, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("input %s: Open is nil", in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", in.Path, err)
	}

	return rc, nil
}

// readPayloadBounded reads whole payload into memory with strict max-size enforcement.
func readPayloadBounded(src io.Reader, limit int64, sizeHint int64, copyBuf []byte) ([]byte, error) {
	var dst bytes.Buffer
	if sizeHint > 0 && sizeHint <= limit {
		dst.Grow(int(sizeHint))
	}

	written, err := copyPayloadBounded(&dst, src, limit, copyBuf)
	if err != nil {
		return nil, err
	}
	if int64(dst.Len()) != written {
		return nil, fmt.Errorf("short read into memory (%d/%d)", dst.Len(), written)
	}

	return dst.Bytes(), nil
}

// copyPayloadBounded streams payload from src to dst and enforces strict size limit.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}
	if src == nil {
		return 0, ErrNilReader
	}
	if limit < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		if remaining := limit - written; int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	// If we consumed exactly the limit, probe one extra byte to ensure source is not longer.
	if written == limit {
		var probe [1]byte
		n, err := src.Read(probe[:])
		if n > 0 {
			return written, ErrSizeOverflow
		}
		if err != nil && err != io.EOF {
			return written, err
		}
	}

	return written, nil
}

// validateUniqueEntryPaths ensures there are no paths differing only by case.
// Such paths would share one path hash index slot.
func validateUniqueEntryPaths(inputs []Input) error {
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		key := strings.ToLower(in.Path)
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateEntryPath, in.Path, existing)
		}

		seen[key] = in.Path
	}

	return nil
}
