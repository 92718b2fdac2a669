package modules

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Markdown renders Markdown content to HTML. Documents that are not Markdown
// pass through unchanged.
type Markdown struct {
	GFM bool `yaml:"gfm"`
	// Unsafe allows raw HTML in the source.
	Unsafe bool `yaml:"unsafe"`
	// Extension replaces the destination extension when set, e.g. ".html".
	Extension string `yaml:"extension"`

	md goldmark.Markdown
}

func newMarkdown(args *yaml.Node) (pipeline.Module, error) {
	m := &Markdown{GFM: true, Extension: ".html"}
	if err := decode(args, m); err != nil {
		return nil, err
	}
	m.init()
	return m, nil
}

// NewMarkdown returns a Markdown module with GFM enabled.
func NewMarkdown() *Markdown {
	m := &Markdown{GFM: true, Extension: ".html"}
	m.init()
	return m
}

func (m *Markdown) init() {
	var opts []goldmark.Option
	if m.GFM {
		opts = append(opts, goldmark.WithExtensions(extension.GFM))
	}
	rendererOpts := []renderer.Option{html.WithXHTML()}
	if m.Unsafe {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	opts = append(opts,
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	m.md = goldmark.New(opts...)
}

// Execute implements pipeline.Module.
func (m *Markdown) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *Markdown) ExecuteDocument(ctx *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	if !isMarkdown(d) {
		return []*document.Document{d}, nil
	}
	src, err := document.ReadAll(d)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := m.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown %s: %w", d.Source(), err)
	}
	store, err := ctx.TempContent(buf.Bytes(), "text/html")
	if err != nil {
		return nil, err
	}
	opts := []document.Option{document.WithContent(store)}
	if m.Extension != "" && d.Destination() != "" {
		opts = append(opts, document.WithDestination(ReplaceExt(d.Destination(), m.Extension)))
	}
	nd, err := d.Derive(opts...)
	if err != nil {
		ctx.DiscardContent(store)
		return nil, err
	}
	return []*document.Document{nd}, nil
}

func isMarkdown(d *document.Document) bool {
	if d.MediaType() == "text/markdown" {
		return true
	}
	switch strings.ToLower(path.Ext(d.Destination())) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// ReplaceExt swaps the extension of p for ext.
func ReplaceExt(p, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}
