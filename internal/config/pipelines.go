package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// PipelineConfig declares one pipeline and its per-phase module lists.
type PipelineConfig struct {
	Name          string         `yaml:"name"`
	Dependencies  []string       `yaml:"dependencies,omitempty"`
	Isolated      bool           `yaml:"isolated,omitempty"`
	AlwaysProcess bool           `yaml:"always_process,omitempty"`
	Input         []ModuleConfig `yaml:"input,omitempty"`
	Process       []ModuleConfig `yaml:"process,omitempty"`
	Render        []ModuleConfig `yaml:"render,omitempty"`
	Write         []ModuleConfig `yaml:"write,omitempty"`
}

// ModuleConfig names a registered module and its arguments. In YAML it is
// either a bare module name or a mapping with "module" and "args".
type ModuleConfig struct {
	Name string
	Args *yaml.Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *ModuleConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Name = node.Value
		return nil
	}
	var raw struct {
		Module string    `yaml:"module"`
		Args   yaml.Node `yaml:"args"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Module == "" {
		return fmt.Errorf("line %d: module entry without a module name", node.Line)
	}
	m.Name = raw.Module
	if raw.Args.Kind != 0 {
		args := raw.Args
		m.Args = &args
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m ModuleConfig) MarshalYAML() (any, error) {
	if m.Args == nil {
		return m.Name, nil
	}
	return struct {
		Module string     `yaml:"module"`
		Args   *yaml.Node `yaml:"args"`
	}{m.Name, m.Args}, nil
}

func (p *PipelineConfig) phases() map[pipeline.Phase][]ModuleConfig {
	return map[pipeline.Phase][]ModuleConfig{
		pipeline.PhaseInput:   p.Input,
		pipeline.PhaseProcess: p.Process,
		pipeline.PhaseRender:  p.Render,
		pipeline.PhaseWrite:   p.Write,
	}
}

// BuildPipelines constructs the configured pipelines using reg.
func (c *Config) BuildPipelines(reg *modules.Registry) ([]*pipeline.Pipeline, error) {
	out := make([]*pipeline.Pipeline, 0, len(c.Pipelines))
	for i := range c.Pipelines {
		pc := &c.Pipelines[i]
		p := &pipeline.Pipeline{
			Name:          pc.Name,
			Dependencies:  append([]string(nil), pc.Dependencies...),
			Isolated:      pc.Isolated,
			AlwaysProcess: pc.AlwaysProcess,
		}
		phases := pc.phases()
		for _, ph := range pipeline.Phases {
			for j, mc := range phases[ph] {
				m, err := reg.Build(mc.Name, mc.Args)
				if err != nil {
					return nil, ferrors.WrapError(err, ferrors.CategoryConfig,
						fmt.Sprintf("pipeline %q %s module %d", pc.Name, ph, j+1)).
						WithContext("pipeline", pc.Name).
						WithContext("module", mc.Name).
						Build()
				}
				p.Append(ph, m)
			}
		}
		out = append(out, p)
	}
	return out, nil
}
