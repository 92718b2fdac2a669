package modules

import (
	"errors"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// FromPipelines appends the outputs of other pipelines to the inputs.
// With no pipelines listed and no exclusion it reads every dependency.
type FromPipelines struct {
	Pipelines []string `yaml:"pipelines"`
	// Except reads every visible pipeline but this one.
	Except string `yaml:"except"`
	// Replace drops the inputs instead of appending to them.
	Replace bool `yaml:"replace"`
}

func newFromPipelines(args *yaml.Node) (pipeline.Module, error) {
	m := &FromPipelines{}
	if err := decode(args, m); err != nil {
		return nil, err
	}
	if m.Except != "" && len(m.Pipelines) > 0 {
		return nil, errors.New("from_pipelines accepts either pipelines or except")
	}
	return m, nil
}

// Execute implements pipeline.Module.
func (m *FromPipelines) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	var found []*document.Document
	switch {
	case len(m.Pipelines) > 0:
		for _, name := range m.Pipelines {
			docs, err := ctx.Outputs.FromPipeline(name)
			if err != nil {
				return nil, err
			}
			found = append(found, docs...)
		}
	case m.Except != "":
		docs, err := ctx.Outputs.ExceptPipeline(m.Except)
		if err != nil {
			return nil, err
		}
		found = docs
	default:
		docs, err := ctx.Outputs.FromAllDependencies()
		if err != nil {
			return nil, err
		}
		found = docs
	}
	if m.Replace {
		return found, nil
	}
	return append(append([]*document.Document(nil), inputs...), found...), nil
}
