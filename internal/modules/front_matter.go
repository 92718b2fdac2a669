package modules

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/frontmatter"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// FrontMatter moves YAML front matter into metadata and strips it from the
// content. Documents without front matter pass through unchanged.
type FrontMatter struct {
	// Keep leaves the front matter block in the content.
	Keep bool `yaml:"keep"`
}

func newFrontMatter(args *yaml.Node) (pipeline.Module, error) {
	m := &FrontMatter{}
	return m, decode(args, m)
}

// Execute implements pipeline.Module.
func (m *FrontMatter) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *FrontMatter) ExecuteDocument(ctx *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	raw, err := document.ReadAll(d)
	if err != nil {
		return nil, err
	}
	block, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("front matter of %s: %w", d.Source(), err)
	}
	if !block.Present {
		return []*document.Document{d}, nil
	}

	opts := []document.Option{document.WithMetadata(block.Fields)}
	var store content.Store
	if !m.Keep {
		store, err = ctx.TempContent(block.Body, d.MediaType())
		if err != nil {
			return nil, err
		}
		opts = append(opts, document.WithContent(store))
	}
	nd, err := d.Derive(opts...)
	if err != nil {
		if store != nil {
			ctx.DiscardContent(store)
		}
		return nil, err
	}
	return []*document.Document{nd}, nil
}
