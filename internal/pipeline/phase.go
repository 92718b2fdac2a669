package pipeline

import (
	"fmt"
	"strings"
)

// Phase is one of the four ordered stages of a pipeline.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseProcess
	PhaseRender
	PhaseWrite
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseInput, PhaseProcess, PhaseRender, PhaseWrite}

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseProcess:
		return "process"
	case PhaseRender:
		return "render"
	case PhaseWrite:
		return "write"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase parses a phase name as written in configuration.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "read":
		return PhaseInput, nil
	case "process":
		return PhaseProcess, nil
	case "render":
		return PhaseRender, nil
	case "write", "output":
		return PhaseWrite, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

// State is the lifecycle state of a pipeline within one run.
type State int

const (
	StatePending State = iota
	StateReading
	StateProcessing
	StateRendering
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReading:
		return "reading"
	case StateProcessing:
		return "processing"
	case StateRendering:
		return "rendering"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether s is Done or Failed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// StateFor returns the running state for phase p.
func StateFor(p Phase) State {
	switch p {
	case PhaseInput:
		return StateReading
	case PhaseProcess:
		return StateProcessing
	case PhaseRender:
		return StateRendering
	default:
		return StateWriting
	}
}

// Transition validates moving from one state to the next. Phases advance one
// step at a time; Process may be skipped straight to Rendering; Failed is
// reachable from every non-terminal state.
func Transition(from, to State) error {
	if from.IsTerminal() {
		return fmt.Errorf("invalid transition %s -> %s: %s is terminal", from, to, from)
	}
	if to == StateFailed {
		return nil
	}
	switch {
	case to == from+1:
		return nil
	case from == StateReading && to == StateRendering:
		return nil
	default:
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
}
