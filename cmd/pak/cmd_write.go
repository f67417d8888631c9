// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package main

import (
	"fmt"
	"path/filepath"

	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/pak"
)

// CompressFlags are shared compression options of create and add.
type CompressFlags struct {
	Methods  []string `kong:"name=compression,short=c,help='Allowed compression methods, first is used (zlib, gzip, zstd, lz4).'"`
	All      bool     `kong:"name=compress,short=z,help='Compress every entry.'"`
	Patterns []string `kong:"name=compress-pattern,help='Compress entries matching pattern.'"`
	MinSize  int64    `kong:"name=min-compress-size,help='Store entries smaller than this size uncompressed.'"`
}

// rules converts flags to compression candidate rules.
func (f CompressFlags) rules() []pathrules.Rule {
	if f.All {
		return []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "*"}}
	}

	return selectionRules(f.Patterns, nil)
}

// CreateCmd packs a directory into a new archive.
type CreateCmd struct {
	Out          string `kong:"arg,required,name=out,type=path,help='Output archive path.'"`
	Input        string `kong:"name=input,short=i,required,type=existingdir,help='Input directory.'"`
	Mount        string `kong:"name=mount,short=m,default='../../../',help='Mount point.'"`
	Version      string `kong:"name=pak-version,short=v,default=V11,help='Archive version.'"`
	PathHashSeed uint64 `kong:"name=path-hash-seed,help='Seed of the v10+ path hash index.'"`
	EncryptIndex bool   `kong:"name=encrypt-index,help='Encrypt the index with --aes-key.'"`
	EncryptData  bool   `kong:"name=encrypt-data,help='Encrypt entry payloads with --aes-key.'"`
	Workers      int    `kong:"name=workers,short=j,help='Parallel staging workers (0 means CPU count).'"`
	BlockSize    uint32 `kong:"name=block-size,help='Compression block size in bytes.'"`

	CompressFlags `kong:"embed"`
}

// Run creates the archive.
func (c *CreateCmd) Run(g *Globals) error {
	v, err := pak.ParseVersion(c.Version)
	if err != nil {
		return err
	}
	if v == pak.VersionAuto {
		return fmt.Errorf("%w: auto is not a write version", pak.ErrInvalidVersion)
	}

	methods, err := parseCompressions(c.Methods)
	if err != nil {
		return err
	}

	inputs, err := collectInputs(c.Input)
	if err != nil {
		return err
	}

	res, err := pak.PackFile(g.Ctx, c.Out, inputs, pak.PackOptions{
		Version:         v,
		MountPoint:      c.Mount,
		MaxWorkers:      c.Workers,
		MinCompressSize: c.MinSize,
		Compress:        c.rules(),
		OnEntryDone:     progressLogger(g.Logger),
		Writer: pak.WriterOptions{
			Logger:       g.Logger,
			Key:          g.Key,
			Compression:  methods,
			PathHashSeed: c.PathHashSeed,
			BlockSize:    c.BlockSize,
			EncryptIndex: c.EncryptIndex,
			EncryptData:  c.EncryptData,
		},
	})
	if err != nil {
		return err
	}

	logPackResult(g.Logger, "archive created", res)
	return nil
}

// AddCmd appends files to an existing archive.
type AddCmd struct {
	Pak         string   `kong:"arg,required,name=pak,type=existingfile,help='Archive path.'"`
	Files       []string `kong:"name=file,short=f,required,type=existingfile,help='Files to add.'"`
	Paths       []string `kong:"name=path,short=p,help='Entry paths for --file, in order (default is the file name).'"`
	Version     string   `kong:"name=pak-version,short=v,default=auto,help='Archive version or auto.'"`
	Replace     bool     `kong:"name=replace,help='Allow replacing existing entries.'"`
	Backup      int      `kong:"name=backup,default=1,help='Backup generations to keep (0 disables backup).'"`
	EncryptData bool     `kong:"name=encrypt-data,help='Encrypt added payloads with --aes-key.'"`

	CompressFlags `kong:"embed"`
}

// Run appends the files.
func (c *AddCmd) Run(g *Globals) error {
	if len(c.Paths) > 0 && len(c.Paths) != len(c.Files) {
		return fmt.Errorf("got %d --path values for %d --file values", len(c.Paths), len(c.Files))
	}

	readerOpts, err := g.readerOptions(c.Version, false)
	if err != nil {
		return err
	}

	methods, err := parseCompressions(c.Methods)
	if err != nil {
		return err
	}

	inputs := make([]pak.Input, 0, len(c.Files))
	for i, file := range c.Files {
		entryPath := filepath.Base(file)
		if len(c.Paths) > 0 {
			entryPath = c.Paths[i]
		}

		in, err := fileInput(file, entryPath)
		if err != nil {
			return err
		}

		inputs = append(inputs, in)
	}

	res, err := pak.Append(g.Ctx, c.Pak, inputs, pak.AppendOptions{
		Reader:     readerOpts,
		BackupKeep: c.Backup,
		Replace:    c.Replace,
		PackOptions: pak.PackOptions{
			MinCompressSize: c.MinSize,
			Compress:        c.rules(),
			OnEntryDone:     progressLogger(g.Logger),
			Writer: pak.WriterOptions{
				Logger:      g.Logger,
				Key:         g.Key,
				Compression: methods,
				EncryptData: c.EncryptData,
			},
		},
	})
	if err != nil {
		return err
	}

	logPackResult(g.Logger, "entries added", res)
	return nil
}
