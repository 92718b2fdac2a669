package modules

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// HTMLTitle sets a title key from the HTML <title> element or, failing that,
// the first <h1>. Existing document titles are kept unless Overwrite is set.
type HTMLTitle struct {
	Key       string `yaml:"key"`
	Overwrite bool   `yaml:"overwrite"`
}

func newHTMLTitle(args *yaml.Node) (pipeline.Module, error) {
	m := &HTMLTitle{Key: "title"}
	return m, decode(args, m)
}

// Execute implements pipeline.Module.
func (m *HTMLTitle) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *HTMLTitle) ExecuteDocument(_ *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	if d.MediaType() != "text/html" {
		return []*document.Document{d}, nil
	}
	if !m.Overwrite {
		if _, ok := d.Metadata().WithoutSettings().Get(m.Key); ok {
			return []*document.Document{d}, nil
		}
	}

	rc, err := d.OpenRead()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	root, err := html.Parse(rc)
	if err != nil {
		return nil, err
	}

	title := findText(root, atom.Title)
	if title == "" {
		title = findText(root, atom.H1)
	}
	if title == "" {
		return []*document.Document{d}, nil
	}
	nd, err := d.Derive(document.WithMetadata(map[string]any{m.Key: title}))
	if err != nil {
		return nil, err
	}
	return []*document.Document{nd}, nil
}

func findText(n *html.Node, a atom.Atom) string {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return strings.Join(strings.Fields(textOf(n)), " ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findText(c, a); t != "" {
			return t
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}
