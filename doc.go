// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

/*
Package pak reads and writes Unreal Engine pak archives across every format
version from Initial (v1) to Fnv64BugFix (v11), including the v8A/v8B
footer variants.

An archive is a sequence of data records followed by an index and a footer.
Each data record is an entry header plus payload; the index maps paths to
entry headers and the footer locates the index. Versions 10 and later store
entries as a bit-packed blob with a seeded FNV-64 path hash index and a full
directory index.

Payloads may be split into compressed blocks (zlib, gzip, zstd, lz4) and
encrypted with AES-256 in ECB mode. Oodle is recognized by name but has no
codec; register one with RegisterCodec.

# Reading

Open an archive and read entries. VersionAuto probes versions newest first:

	r, err := pak.OpenWithOptions("game.pak", pak.ReaderOptions{
	    Key:          key,
	    VerifyHashes: true,
	})
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, e := range r.Entries() {
	    data, err := r.ReadEntry(e.Path)
	    if err != nil {
	        return err
	    }
	    _ = data
	}

For metadata only:

	info, err := pak.ReadInfo("game.pak", pak.ReaderOptions{})
	entries, err := pak.ListEntries("game.pak", pak.ReaderOptions{})

# Extracting

Extract entries in parallel, optionally selected by path rules:

	err := r.Extract(ctx, "out/", pak.ExtractOptions{
	    MaxWorkers: 4,
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionExclude, Pattern: "*"},
	        {Action: pathrules.ActionInclude, Pattern: "Content/**"},
	    },
	})

Output names are sanitized unless RawNames is set.

# Writing

The low-level Writer builds entries, writes them in order and emits the
index and footer on Finish:

	w, err := pak.NewWriter(f, pak.V11, pak.DefaultMountPoint, pak.WriterOptions{
	    Compression: []pak.Compression{pak.CompressionZstd},
	})
	if err != nil {
	    return err
	}
	if err := w.WriteFile("Content/a.txt", true, data); err != nil {
	    return err
	}
	if err := w.Finish(); err != nil {
	    return err
	}

Entries can be compressed and encrypted concurrently with BuildEntry and
written later in any order with WriteEntry.

# Packing

Pack streams inputs through parallel staging workers and writes entries in
path order:

	res, err := pak.PackFile(ctx, "mod.pak", inputs, pak.PackOptions{
	    Version: pak.V11,
	    Compress: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.uasset"},
	    },
	})

Append adds inputs to an existing archive in place, rewriting only index and
footer:

	res, err := pak.Append(ctx, "mod.pak", inputs, pak.AppendOptions{
	    BackupKeep: 1,
	})
*/
package pak
