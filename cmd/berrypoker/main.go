package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Debug   bool             `help:"Enable debug logging"`
	Serve   ServeCmd         `cmd:"" default:"withargs" help:"Run the poker server"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("berrypoker"),
		kong.Description("Multi-room No-Limit Texas Hold'em server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	err := ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
