package pipeline

import (
	"golang.org/x/text/cases"
)

// Pipeline is a named unit of four ordered phases.
type Pipeline struct {
	Name         string
	Dependencies []string
	// Isolated pipelines neither read nor expose outputs to other pipelines.
	Isolated bool
	// AlwaysProcess disables Process-phase skipping for this pipeline.
	AlwaysProcess bool

	Input   []Module
	Process []Module
	Render  []Module
	Write   []Module
}

// Modules returns the modules configured for phase p.
func (p *Pipeline) Modules(ph Phase) []Module {
	switch ph {
	case PhaseInput:
		return p.Input
	case PhaseProcess:
		return p.Process
	case PhaseRender:
		return p.Render
	case PhaseWrite:
		return p.Write
	default:
		return nil
	}
}

// Append adds modules to phase ph.
func (p *Pipeline) Append(ph Phase, mods ...Module) {
	switch ph {
	case PhaseInput:
		p.Input = append(p.Input, mods...)
	case PhaseProcess:
		p.Process = append(p.Process, mods...)
	case PhaseRender:
		p.Render = append(p.Render, mods...)
	case PhaseWrite:
		p.Write = append(p.Write, mods...)
	}
}

// Key returns the case-insensitive identity of a pipeline name.
func Key(name string) string {
	return cases.Fold().String(name)
}

// SameName reports whether a and b name the same pipeline.
func SameName(a, b string) bool {
	return Key(a) == Key(b)
}
