package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Serial      bool `help:"Handle documents one at a time in input order"`
	Concurrency int  `short:"j" help:"Per-document worker limit (0 uses the configured value)"`
	NoCache     bool `name:"no-cache" help:"Disable reuse of unchanged Process outputs"`
	Summary     bool `default:"true" negatable:"" help:"Print a per-pipeline summary"`

	out io.Writer `kong:"-"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	b.applyOverrides(cfg)
	logger := configureLogger(cfg, root.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return b.build(ctx, cfg, logger, appOptions{})
}

func (b *BuildCmd) applyOverrides(cfg *config.Config) {
	if b.Serial {
		cfg.Engine.Serial = true
	}
	if b.Concurrency > 0 {
		cfg.Engine.Concurrency = b.Concurrency
	}
	if b.NoCache {
		cfg.Engine.ProcessCache = false
	}
}

func (b *BuildCmd) build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) error {
	a, err := newApp(cfg, logger, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("Starting build",
		slog.String("config", cfg.Path()),
		logfields.Path(cfg.Output.Directory))
	report, err := a.Run(ctx)
	if b.Summary {
		out := b.out
		if out == nil {
			out = os.Stdout
		}
		printSummary(out, report)
	}
	return err
}
