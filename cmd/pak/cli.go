// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/pak"
)

// CLI is the root command line model.
type CLI struct {
	Version kong.VersionFlag `kong:"name=version,help='Print version and exit.'"`

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogCaller  bool   `kong:"name=log-caller,env=LOG_CALLER,default=false,help='Add file:line of the caller to log output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`

	AESKey string `kong:"name=aes-key,env=PAK_AES_KEY,help='AES-256 key as hex (optional 0x) or base64.'"`

	List    ListCmd    `kong:"cmd,help='List archive entries.'"`
	Info    InfoCmd    `kong:"cmd,help='Show archive metadata.'"`
	Extract ExtractCmd `kong:"cmd,help='Extract archive entries to a directory.'"`
	Create  CreateCmd  `kong:"cmd,help='Create an archive from a directory.'"`
	Add     AddCmd     `kong:"cmd,help='Add files to an existing archive.'"`
}

// Globals carries resolved global options into command Run methods.
type Globals struct {
	Ctx    context.Context
	Logger *zerolog.Logger
	Key    []byte
}

// globals resolves global flags after logging is configured.
func (c *CLI) globals(ctx context.Context) (*Globals, error) {
	g := &Globals{
		Ctx:    ctx,
		Logger: &log.Logger,
	}

	if c.AESKey != "" {
		key, err := pak.ParseKey(c.AESKey)
		if err != nil {
			return nil, err
		}

		g.Key = key
	}

	return g, nil
}

// readerOptions builds reader options shared by read commands.
func (g *Globals) readerOptions(version string, verify bool) (pak.ReaderOptions, error) {
	v, err := pak.ParseVersion(version)
	if err != nil {
		return pak.ReaderOptions{}, err
	}

	return pak.ReaderOptions{
		Logger:       g.Logger,
		Key:          g.Key,
		Version:      v,
		VerifyHashes: verify,
	}, nil
}

// parseCompressions converts method names to compression tags.
func parseCompressions(names []string) ([]pak.Compression, error) {
	if len(names) == 0 {
		return nil, nil
	}

	out := make([]pak.Compression, 0, len(names))
	for _, name := range names {
		c := pak.ParseCompression(name)
		if c == pak.CompressionNone {
			return nil, fmt.Errorf("%w: %q", pak.ErrCompressionNotSupported, name)
		}

		out = append(out, c)
	}

	return out, nil
}

// progressLogger returns a pack progress callback logging each written entry.
func progressLogger(logger *zerolog.Logger) func(pak.PackEntryProgress) {
	return func(e pak.PackEntryProgress) {
		logger.Debug().
			Str("path", e.Path).
			Stringer("compression", e.Compression).
			Uint64("compressed", e.Compressed).
			Uint64("uncompressed", e.Uncompressed).
			Msg("entry written")
	}
}

// logPackResult reports pack statistics at info level.
func logPackResult(logger *zerolog.Logger, msg string, res *pak.PackResult) {
	logger.Info().
		Int("entries", res.WrittenEntries).
		Int("compressed_entries", res.CompressedEntries).
		Int64("raw_bytes", res.RawBytes).
		Int64("data_size", res.DataSize).
		Int64("index_size", res.IndexSize).
		Dur("duration", res.Duration).
		Msg(msg)
}

