// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

// Package logging configures the global zerolog logger for the pak CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Options control log output.
type Options struct {
	Level   string
	JSON    bool
	Caller  bool
	NoColor bool
}

// Configure installs the global logger writing to stderr.
func Configure(opts Options) error {
	return ConfigureWriter(os.Stderr, opts)
}

// ConfigureWriter installs the global logger writing to out.
func ConfigureWriter(out io.Writer, opts Options) error {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", opts.Level, err)
	}

	// Adds support for NO_COLOR. More info https://no-color.org/
	_, noColor := os.LookupEnv("NO_COLOR")

	w := out
	if !opts.JSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    noColor || opts.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	ctx := zerolog.New(w).With().Timestamp()
	if opts.Caller {
		ctx = ctx.Caller()
	}

	log.Logger = ctx.Logger()
	zerolog.SetGlobalLevel(level)

	return nil
}
