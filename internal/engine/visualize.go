package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// VisualizationFormat selects the output of Visualize.
type VisualizationFormat string

const (
	FormatText    VisualizationFormat = "text"
	FormatMermaid VisualizationFormat = "mermaid"
	FormatDOT     VisualizationFormat = "dot"
	FormatJSON    VisualizationFormat = "json"
)

// SupportedFormats lists every visualization format.
func SupportedFormats() []VisualizationFormat {
	return []VisualizationFormat{FormatText, FormatMermaid, FormatDOT, FormatJSON}
}

// FormatDescription describes a visualization format.
func FormatDescription(format VisualizationFormat) string {
	switch format {
	case FormatText:
		return "Human-readable text with ASCII art"
	case FormatMermaid:
		return "Mermaid diagram (for GitHub, GitLab, etc.)"
	case FormatDOT:
		return "Graphviz DOT format (render with `dot -Tpng pipelines.dot -o pipelines.png`)"
	case FormatJSON:
		return "Structured JSON representation"
	}
	return ""
}

// Visualize renders the registered pipelines in execution order.
func (e *Engine) Visualize(format VisualizationFormat) (string, error) {
	return Visualize(e.Pipelines(), format)
}

// Visualize validates the graph and renders it in the requested format.
func Visualize(pipelines []*pipeline.Pipeline, format VisualizationFormat) (string, error) {
	order, err := validate(pipelines)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatText:
		return visualizeText(order), nil
	case FormatMermaid:
		return visualizeMermaid(order), nil
	case FormatDOT:
		return visualizeDOT(order), nil
	case FormatJSON:
		return visualizeJSON(order)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func flags(p *pipeline.Pipeline) string {
	var f []string
	if p.Isolated {
		f = append(f, "isolated")
	}
	if p.AlwaysProcess {
		f = append(f, "always process")
	}
	if len(f) == 0 {
		return ""
	}
	return " (" + strings.Join(f, ", ") + ")"
}

func moduleNames(mods []pipeline.Module) []string {
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = pipeline.NameOf(m)
	}
	return names
}

func visualizeText(order []*pipeline.Pipeline) string {
	var sb strings.Builder
	sb.WriteString("Pipeline Execution Order\n")
	sb.WriteString("========================\n\n")
	for i, p := range order {
		fmt.Fprintf(&sb, "┌─ %d: %s%s\n", i+1, p.Name, flags(p))
		if len(p.Dependencies) > 0 {
			fmt.Fprintf(&sb, "│   ⤷ depends on: %s\n", strings.Join(p.Dependencies, ", "))
		}
		var phases []pipeline.Phase
		for _, ph := range pipeline.Phases {
			if len(p.Modules(ph)) > 0 {
				phases = append(phases, ph)
			}
		}
		for j, ph := range phases {
			prefix := "├──"
			if j == len(phases)-1 {
				prefix = "└──"
			}
			fmt.Fprintf(&sb, "│ %s %s: %s\n", prefix, ph, strings.Join(moduleNames(p.Modules(ph)), " → "))
		}
		sb.WriteString("│\n")
		if i < len(order)-1 {
			sb.WriteString("↓\n")
		}
	}
	fmt.Fprintf(&sb, "\nTotal: %d pipelines\n", len(order))
	return sb.String()
}

func nodeID(name string) string {
	var b strings.Builder
	b.WriteString("p_")
	for _, r := range pipeline.Key(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func visualizeMermaid(order []*pipeline.Pipeline) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")
	for _, p := range order {
		label := p.Name
		if mods := moduleNames(p.Modules(pipeline.PhaseProcess)); len(mods) > 0 {
			label += "<br/>" + strings.Join(mods, ", ")
		}
		if p.Isolated {
			fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", nodeID(p.Name), label)
		} else {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", nodeID(p.Name), label)
		}
	}
	sb.WriteString("\n")
	for _, p := range order {
		for _, dep := range p.Dependencies {
			fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(dep), nodeID(p.Name))
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func visualizeDOT(order []*pipeline.Pipeline) string {
	var sb strings.Builder
	sb.WriteString("digraph Pipelines {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")
	for _, p := range order {
		attrs := ""
		if p.Isolated {
			attrs = ", style=\"rounded,dashed\""
		}
		fmt.Fprintf(&sb, "    %q [label=%q%s];\n", p.Name, p.Name+flags(p), attrs)
	}
	sb.WriteString("\n")
	for _, p := range order {
		for _, dep := range p.Dependencies {
			fmt.Fprintf(&sb, "    %q -> %q;\n", dep, p.Name)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

type pipelineView struct {
	Name          string              `json:"name"`
	Order         int                 `json:"order"`
	Dependencies  []string            `json:"dependencies"`
	Isolated      bool                `json:"isolated"`
	AlwaysProcess bool                `json:"alwaysProcess"`
	Phases        map[string][]string `json:"phases"`
}

func visualizeJSON(order []*pipeline.Pipeline) (string, error) {
	views := make([]pipelineView, 0, len(order))
	for i, p := range order {
		v := pipelineView{
			Name:          p.Name,
			Order:         i + 1,
			Dependencies:  append([]string{}, p.Dependencies...),
			Isolated:      p.Isolated,
			AlwaysProcess: p.AlwaysProcess,
			Phases:        make(map[string][]string),
		}
		for _, ph := range pipeline.Phases {
			if mods := p.Modules(ph); len(mods) > 0 {
				v.Phases[ph.String()] = moduleNames(mods)
			}
		}
		views = append(views, v)
	}
	data, err := json.MarshalIndent(struct {
		Pipelines      []pipelineView `json:"pipelines"`
		TotalPipelines int            `json:"totalPipelines"`
	}{views, len(views)}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal pipelines: %w", err)
	}
	return string(data) + "\n", nil
}
