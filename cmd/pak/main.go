// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

// Command pak lists, extracts, creates and appends Unreal Engine pak archives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/pak/internal/logging"
)

var version = "dev"

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pak"),
		kong.Description("Read and write Unreal Engine pak archives."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if err := logging.Configure(logging.Options{
		Level:   cli.LogLevel,
		JSON:    cli.LogJSON,
		Caller:  cli.LogCaller,
		NoColor: cli.LogNoColor,
	}); err != nil {
		kctx.FatalIfErrorf(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globals, err := cli.globals(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid options")
	}

	if err := kctx.Run(globals); err != nil {
		log.Fatal().Err(err).Msgf("%s failed", kctx.Command())
	}
}
