// Package commands implements the sitepipe command line.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command with its global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitepipe.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Run every pipeline once and write the site"`
	Watch     WatchCmd     `cmd:"" help:"Rebuild whenever inputs or the configuration change"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Visualize VisualizeCmd `cmd:"" help:"Visualize the pipeline graph (text, mermaid, dot, json)"`
}

// AfterApply runs after flag parsing; it installs a bootstrap logger that
// commands replace once the configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}
