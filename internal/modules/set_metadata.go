package modules

import (
	"errors"
	"path"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// SetMetadata pushes a fixed metadata layer onto every document.
type SetMetadata struct {
	Values map[string]any `yaml:"values"`
	// Only restricts the module to destinations matching these patterns.
	Only []string `yaml:"only"`

	layer *metadata.Layer
}

func newSetMetadata(args *yaml.Node) (pipeline.Module, error) {
	m := &SetMetadata{}
	if err := decode(args, m); err != nil {
		return nil, err
	}
	if len(m.Values) == 0 {
		return nil, errors.New("set_metadata requires values")
	}
	m.layer = metadata.NewLayer(m.Values)
	return m, nil
}

// NewSetMetadata returns a module pushing values onto every document.
func NewSetMetadata(values map[string]any) *SetMetadata {
	return &SetMetadata{Values: values, layer: metadata.NewLayer(values)}
}

// Execute implements pipeline.Module.
func (m *SetMetadata) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *SetMetadata) ExecuteDocument(_ *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	if len(m.Only) > 0 && !Match(m.Only, d.Destination()) {
		return []*document.Document{d}, nil
	}
	nd, err := d.Derive(document.WithLayer(m.layer))
	if err != nil {
		return nil, err
	}
	return []*document.Document{nd}, nil
}

// SetExtension replaces the destination extension.
type SetExtension struct {
	Extension string `yaml:"extension"`
	// From limits the change to destinations with this extension.
	From string `yaml:"from"`
}

func newSetExtension(args *yaml.Node) (pipeline.Module, error) {
	m := &SetExtension{}
	if err := decode(args, m); err != nil {
		return nil, err
	}
	if m.Extension == "" {
		return nil, errors.New("set_extension requires extension")
	}
	return m, nil
}

// Execute implements pipeline.Module.
func (m *SetExtension) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *SetExtension) ExecuteDocument(_ *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	dest := d.Destination()
	if dest == "" {
		return []*document.Document{d}, nil
	}
	if m.From != "" && path.Ext(dest) != ReplaceExt("", m.From) {
		return []*document.Document{d}, nil
	}
	nd, err := d.Derive(document.WithDestination(ReplaceExt(dest, m.Extension)))
	if err != nil {
		return nil, err
	}
	return []*document.Document{nd}, nil
}
