// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/woozymasta/pak"
)

// Output formats for list and info.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeEntries prints entries in the selected format.
func writeEntries(w io.Writer, format string, entries []pak.EntryInfo) error {
	if format != formatText {
		return writeStructured(w, format, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "SIZE\tSTORED\tMETHOD\t\tPATH\t")
	for _, e := range entries {
		method := e.Compression.String()
		if e.Encrypted {
			method += "+AES"
		}

		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t\t%s\t\n", e.Uncompressed, e.Compressed, method, e.Path)
	}

	return tw.Flush()
}

// writeInfo prints archive metadata in the selected format.
func writeInfo(w io.Writer, format string, info pak.ArchiveInfo) error {
	if format != formatText {
		return writeStructured(w, format, info)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "version:\t%s\n", info.Version)
	_, _ = fmt.Fprintf(tw, "mount point:\t%s\n", info.MountPoint)
	_, _ = fmt.Fprintf(tw, "entries:\t%d\n", info.Entries)
	_, _ = fmt.Fprintf(tw, "size:\t%d\n", info.Size)
	_, _ = fmt.Fprintf(tw, "index offset:\t%d\n", info.IndexOffset)
	_, _ = fmt.Fprintf(tw, "index size:\t%d\n", info.IndexSize)
	_, _ = fmt.Fprintf(tw, "index hash:\t%s\n", info.IndexHash)
	_, _ = fmt.Fprintf(tw, "encrypted index:\t%t\n", info.EncryptedIndex)
	if len(info.Compressions) > 0 {
		_, _ = fmt.Fprintf(tw, "compressions:\t%v\n", info.Compressions)
	}
	if info.EncryptionGUID != nil {
		_, _ = fmt.Fprintf(tw, "encryption guid:\t%s\n", info.EncryptionGUID)
	}
	if info.PathHashSeed != nil {
		_, _ = fmt.Fprintf(tw, "path hash seed:\t%#016x\n", *info.PathHashSeed)
	}
	if info.Frozen {
		_, _ = fmt.Fprintln(tw, "frozen:\ttrue")
	}

	return tw.Flush()
}
