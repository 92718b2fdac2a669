package engine

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// outputs answers cross-pipeline queries for one pipeline and phase.
//
// During Input and Process only declared dependencies are visible, and they
// expose their final outputs. During Render and Write every non-isolated
// pipeline ordered before the caller is visible as well; pipelines that are
// not dependencies expose their Process outputs.
//
// Pipelines unrelated by dependencies are ordered by case-folded name, so in
// Render "alpha" cannot read "zeta" while "zeta" can read "alpha". Declare a
// dependency to make the relation independent of naming.
type outputs struct {
	r     *run
	self  *pipelineState
	phase pipeline.Phase
}

var _ pipeline.Outputs = (*outputs)(nil)

func (o *outputs) visibilityError(msg, target string) error {
	return ferrors.VisibilityError(msg).
		WithContext("pipeline", o.self.p.Name).
		WithContext("target", target).
		WithContext("phase", o.phase.String()).
		Build()
}

func (o *outputs) isDependency(q *pipelineState) bool {
	for _, d := range o.self.deps {
		if d == q {
			return true
		}
	}
	return false
}

// resolve returns the documents of q visible to the caller.
func (o *outputs) resolve(q *pipelineState) ([]*document.Document, error) {
	name := q.p.Name
	switch {
	case q == o.self:
		return nil, o.visibilityError(fmt.Sprintf("pipeline %q cannot read its own outputs", name), name)
	case o.self.p.Isolated:
		return nil, o.visibilityError(fmt.Sprintf("isolated pipeline %q cannot read other pipelines", o.self.p.Name), name)
	case q.p.Isolated:
		return nil, o.visibilityError(fmt.Sprintf("pipeline %q is isolated", name), name)
	}

	if o.isDependency(q) {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.state != pipeline.StateDone {
			return nil, o.visibilityError(fmt.Sprintf("outputs of %q not available", name), name)
		}
		return q.final, nil
	}

	if o.phase < pipeline.PhaseRender {
		return nil, o.visibilityError(
			fmt.Sprintf("pipeline %q is not a declared dependency of %q", name, o.self.p.Name), name)
	}
	if q.pos > o.self.pos {
		return nil, o.visibilityError(
			fmt.Sprintf("outputs of %q not available: it is ordered after %q", name, o.self.p.Name), name)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.processOK {
		return nil, o.visibilityError(fmt.Sprintf("outputs of %q not available: pipeline failed", name), name)
	}
	return q.processed, nil
}

func (o *outputs) lookup(name string) (*pipelineState, error) {
	q, ok := o.r.states[pipeline.Key(name)]
	if !ok {
		return nil, o.visibilityError(fmt.Sprintf("unknown pipeline %q", name), name)
	}
	return q, nil
}

// FromPipeline implements pipeline.Outputs.
func (o *outputs) FromPipeline(name string) ([]*document.Document, error) {
	q, err := o.lookup(name)
	if err != nil {
		return nil, err
	}
	docs, err := o.resolve(q)
	if err != nil {
		return nil, err
	}
	return clone(docs), nil
}

// ExceptPipeline implements pipeline.Outputs. Pipelines that are invisible to
// the caller are left out. Failed ones are left out too and logged at debug
// level.
func (o *outputs) ExceptPipeline(name string) ([]*document.Document, error) {
	excluded, err := o.lookup(name)
	if err != nil {
		return nil, err
	}
	if o.self.p.Isolated {
		return nil, o.visibilityError(fmt.Sprintf("isolated pipeline %q cannot read other pipelines", o.self.p.Name), name)
	}
	var out []*document.Document
	for _, q := range o.r.order {
		if q == excluded || q == o.self || q.p.Isolated {
			continue
		}
		if !o.isDependency(q) && (o.phase < pipeline.PhaseRender || q.pos > o.self.pos) {
			continue
		}
		docs, err := o.resolve(q)
		if err != nil {
			o.r.logger.Debug("Pipeline outputs left out",
				logfields.Pipeline(o.self.p.Name),
				slog.String("target", q.p.Name),
				logfields.Phase(o.phase.String()),
				logfields.Error(err))
			continue
		}
		out = append(out, docs...)
	}
	return out, nil
}

// FromAllDependencies implements pipeline.Outputs.
func (o *outputs) FromAllDependencies() ([]*document.Document, error) {
	var out []*document.Document
	for _, dep := range o.self.deps {
		docs, err := o.resolve(dep)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

func clone(docs []*document.Document) []*document.Document {
	if docs == nil {
		return nil
	}
	out := make([]*document.Document, len(docs))
	copy(out, docs)
	return out
}
