package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
)

// VisualizeCmd implements the 'visualize' command.
type VisualizeCmd struct {
	Format string `short:"f" help:"Output format (text, mermaid, dot, json)" default:"text" enum:"text,mermaid,dot,json"`
	Output string `short:"o" help:"Write the result to a file instead of stdout"`
	List   bool   `help:"List supported formats"`
	// Modules lists the registered module names instead of the graph.
	Modules bool `help:"List available modules"`

	out io.Writer `kong:"-"`
}

func (v *VisualizeCmd) Run(_ *Global, root *CLI) error {
	out := v.out
	if out == nil {
		out = os.Stdout
	}
	reg := modules.NewRegistry()

	if v.List {
		_, _ = fmt.Fprintln(out, "Supported visualization formats:")
		for _, f := range engine.SupportedFormats() {
			_, _ = fmt.Fprintf(out, "  %-8s %s\n", f, engine.FormatDescription(f))
		}
		return nil
	}
	if v.Modules {
		for _, name := range reg.Names() {
			_, _ = fmt.Fprintln(out, name)
		}
		return nil
	}

	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	pipelines, err := cfg.BuildPipelines(reg)
	if err != nil {
		return err
	}
	rendered, err := engine.Visualize(pipelines, engine.VisualizationFormat(v.Format))
	if err != nil {
		return err
	}

	if v.Output != "" {
		if err := os.WriteFile(v.Output, []byte(rendered), 0o600); err != nil {
			return fmt.Errorf("write visualization: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Pipeline visualization written to %s\n", v.Output)
		return nil
	}
	_, _ = fmt.Fprint(out, rendered)
	return nil
}
