// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/pak"
)

// ListCmd lists archive entries.
type ListCmd struct {
	Pak     string `kong:"arg,required,name=pak,type=existingfile,help='Archive path.'"`
	Prefix  string `kong:"name=prefix,help='Only list entries under this path.'"`
	Version string `kong:"name=pak-version,short=v,default=auto,help='Archive version or auto.'"`
	Format  string `kong:"name=format,enum='text,json,yaml',default=text,help='Output format (text, json, yaml).'"`
	MinSize uint64 `kong:"name=min-size,help='Hide entries smaller than this size.'"`
	Junk    bool   `kong:"name=hide-junk,help='Hide delete records and unusable paths.'"`
	ASCII   bool   `kong:"name=ascii-only,help='Hide entries with non-ASCII paths.'"`
	Mounted bool   `kong:"name=mounted,help='Print paths prefixed with the archive mount point.'"`
}

// Run lists entries to stdout.
func (c *ListCmd) Run(g *Globals) error {
	return c.list(os.Stdout, g)
}

// list writes filtered entries to out.
func (c *ListCmd) list(out io.Writer, g *Globals) error {
	opts, err := g.readerOptions(c.Version, false)
	if err != nil {
		return err
	}

	opts.EntryPathPrefix = c.Prefix
	opts.MinEntrySize = c.MinSize
	opts.EnableJunkFilter = c.Junk
	opts.FilterASCIIOnly = c.ASCII

	r, err := pak.OpenWithOptions(c.Pak, opts)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	entries := r.Entries()
	if c.Mounted {
		for i := range entries {
			entries[i].Path = pak.JoinMountPath(r.MountPoint(), entries[i].Path)
		}
	}

	return writeEntries(out, c.Format, entries)
}

// InfoCmd prints archive metadata.
type InfoCmd struct {
	Pak     string `kong:"arg,required,name=pak,type=existingfile,help='Archive path.'"`
	Version string `kong:"name=pak-version,short=v,default=auto,help='Archive version or auto.'"`
	Format  string `kong:"name=format,enum='text,json,yaml',default=text,help='Output format (text, json, yaml).'"`
	Verify  bool   `kong:"name=verify,help='Verify index hashes.'"`
}

// Run prints metadata to stdout.
func (c *InfoCmd) Run(g *Globals) error {
	opts, err := g.readerOptions(c.Version, c.Verify)
	if err != nil {
		return err
	}

	info, err := pak.ReadInfo(c.Pak, opts)
	if err != nil {
		return err
	}

	return writeInfo(os.Stdout, c.Format, info)
}

// ExtractCmd extracts entries to a directory.
type ExtractCmd struct {
	Pak      string   `kong:"arg,required,name=pak,type=existingfile,help='Archive path.'"`
	Output   string   `kong:"name=output,short=o,type=path,default=.,help='Output directory.'"`
	Files    []string `kong:"name=file,short=f,help='Extract only these entry paths.'"`
	Include  []string `kong:"name=include,help='Include entries matching pattern.'"`
	Exclude  []string `kong:"name=exclude,help='Exclude entries matching pattern.'"`
	Version  string   `kong:"name=pak-version,short=v,default=auto,help='Archive version or auto.'"`
	Mode     string   `kong:"name=mode,enum='auto,overwrite_smart,truncate,create_only',default=auto,help='Output file policy.'"`
	Workers  int      `kong:"name=workers,short=j,help='Parallel workers (0 means CPU count).'"`
	RawNames bool     `kong:"name=raw-names,help='Keep entry names without sanitization.'"`
	Verify   bool     `kong:"name=verify,help='Verify index and payload hashes.'"`
}

// Run extracts the archive.
func (c *ExtractCmd) Run(g *Globals) error {
	opts, err := g.readerOptions(c.Version, c.Verify)
	if err != nil {
		return err
	}

	r, err := pak.OpenWithOptions(c.Pak, opts)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	extractOpts := pak.ExtractOptions{
		FileMode:   pak.ExtractFileMode(c.Mode),
		MaxWorkers: c.Workers,
		RawNames:   c.RawNames,
		Rules:      selectionRules(c.Include, c.Exclude),
		OnEntryDone: func(e pak.EntryInfo, written int64, outputPath string) {
			g.Logger.Debug().Str("path", e.Path).Int64("size", written).Str("output", outputPath).Msg("entry extracted")
		},
	}
	if len(c.Include) > 0 {
		extractOpts.RulesMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if len(c.Files) > 0 {
		extractOpts.Entries, err = pickEntries(r, c.Files)
		if err != nil {
			return err
		}
	}

	if err := r.Extract(g.Ctx, c.Output, extractOpts); err != nil {
		return err
	}

	g.Logger.Info().Str("output", c.Output).Msg("extracted")
	return nil
}

// selectionRules builds ordered selection rules; excludes are evaluated after includes.
func selectionRules(include, exclude []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(include)+len(exclude))
	for _, p := range include {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}
	for _, p := range exclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p})
	}

	return rules
}

// pickEntries resolves explicit entry paths to listing metadata.
func pickEntries(r *pak.Reader, paths []string) ([]pak.EntryInfo, error) {
	byPath := make(map[string]pak.EntryInfo)
	for _, e := range r.Entries() {
		byPath[e.Path] = e
	}

	out := make([]pak.EntryInfo, 0, len(paths))
	for _, p := range paths {
		e, ok := byPath[pak.NormalizePath(p)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", pak.ErrMissingEntry, p)
		}

		out = append(out, e)
	}

	return out, nil
}
