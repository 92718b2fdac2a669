package engine

import (
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// PipelineResult is the outcome of one pipeline in a run.
type PipelineResult struct {
	Name           string
	State          pipeline.State
	Err            error
	Duration       time.Duration
	ProcessSkipped bool
	// Outputs are the final documents. They are disposed once the run ends;
	// identity, paths and evaluated metadata remain readable.
	Outputs []*document.Document
}

func (p PipelineResult) outcome() metrics.OutcomeLabel {
	switch {
	case p.State == pipeline.StateDone:
		return metrics.OutcomeDone
	case ferrors.HasCategory(p.Err, ferrors.CategoryCanceled):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

// Report summarizes a run.
type Report struct {
	RunID        string
	Pipelines    []PipelineResult
	Duration     time.Duration
	TotalWrites  int
	ActualWrites int
}

func (r *run) report(runID string) *Report {
	rep := &Report{RunID: runID}
	for _, ps := range r.order {
		ps.mu.Lock()
		rep.Pipelines = append(rep.Pipelines, PipelineResult{
			Name:           ps.p.Name,
			State:          ps.state,
			Err:            ps.err,
			Duration:       ps.duration,
			ProcessSkipped: ps.processSkipped,
			Outputs:        clone(ps.final),
		})
		ps.mu.Unlock()
	}
	return rep
}

// Succeeded reports whether no pipeline failed.
func (r *Report) Succeeded() bool {
	return r.FailedCount() == 0
}

// FailedCount returns the number of failed pipelines.
func (r *Report) FailedCount() int {
	n := 0
	for _, p := range r.Pipelines {
		if p.State == pipeline.StateFailed {
			n++
		}
	}
	return n
}

// Err joins the errors of every failed pipeline.
func (r *Report) Err() error {
	var errs []error
	for _, p := range r.Pipelines {
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("pipeline %s: %w", p.Name, p.Err))
		}
	}
	return errors.Join(errs...)
}

// Pipeline returns the result for name.
func (r *Report) Pipeline(name string) (PipelineResult, bool) {
	for _, p := range r.Pipelines {
		if pipeline.SameName(p.Name, name) {
			return p, true
		}
	}
	return PipelineResult{}, false
}

// Outputs returns the final documents of name.
func (r *Report) Outputs(name string) []*document.Document {
	p, _ := r.Pipeline(name)
	return p.Outputs
}
