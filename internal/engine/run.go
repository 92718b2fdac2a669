package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/observability"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// pipelineState tracks one pipeline during a run.
type pipelineState struct {
	p    *pipeline.Pipeline
	pos  int
	deps []*pipelineState

	mu             sync.Mutex
	state          pipeline.State
	err            error
	final          []*document.Document
	processed      []*document.Document
	processOK      bool
	processSkipped bool
	inputDigest    uint64
	hasDigest      bool
	outputDigest   uint64
	duration       time.Duration

	processOnce sync.Once
	processDone chan struct{}
	done        chan struct{}
}

func (ps *pipelineState) current() pipeline.State {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.state
}

func (ps *pipelineState) transition(to pipeline.State) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if err := pipeline.Transition(ps.state, to); err != nil {
		return ferrors.InternalError("invalid pipeline state transition").
			WithCause(err).
			WithContext("pipeline", ps.p.Name).
			Build()
	}
	ps.state = to
	return nil
}

func (ps *pipelineState) publish(docs []*document.Document) {
	ps.mu.Lock()
	ps.final = docs
	ps.mu.Unlock()
}

func (ps *pipelineState) publishProcess(docs []*document.Document) {
	ps.mu.Lock()
	ps.final = docs
	ps.processed = docs
	ps.processOK = true
	ps.mu.Unlock()
	ps.processOnce.Do(func() { close(ps.processDone) })
}

type run struct {
	e      *Engine
	logger *slog.Logger
	order  []*pipelineState
	states map[string]*pipelineState
}

func newRun(e *Engine, order []*pipeline.Pipeline, logger *slog.Logger) *run {
	r := &run{
		e:      e,
		logger: logger,
		states: make(map[string]*pipelineState, len(order)),
	}
	for i, p := range order {
		ps := &pipelineState{
			p:           p,
			pos:         i,
			state:       pipeline.StatePending,
			processDone: make(chan struct{}),
			done:        make(chan struct{}),
		}
		r.order = append(r.order, ps)
		r.states[pipeline.Key(p.Name)] = ps
	}
	for _, ps := range r.order {
		seen := make(map[*pipelineState]bool)
		for _, dep := range ps.p.Dependencies {
			d := r.states[pipeline.Key(dep)]
			if !seen[d] {
				seen[d] = true
				ps.deps = append(ps.deps, d)
			}
		}
	}
	return r
}

func (r *run) execute(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ps := range r.order {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runPipeline(ctx, ps)
		}()
	}
	wg.Wait()
}

func (r *run) runPipeline(ctx context.Context, ps *pipelineState) {
	start := time.Now()
	ctx = observability.WithPipeline(ctx, ps.p.Name)
	logger := observability.Logger(ctx, r.e.logger)
	defer func() {
		ps.mu.Lock()
		ps.duration = time.Since(start)
		ps.mu.Unlock()
		ps.processOnce.Do(func() { close(ps.processDone) })
		close(ps.done)
	}()

	for _, dep := range ps.deps {
		select {
		case <-dep.done:
		case <-ctx.Done():
			r.fail(ctx, ps, canceled(ctx))
			return
		}
		if dep.current() == pipeline.StateFailed {
			r.fail(ctx, ps, ferrors.ModuleError(fmt.Sprintf("dependency %q failed", dep.p.Name)).
				WithContext("pipeline", ps.p.Name).
				WithContext("dependency", dep.p.Name).
				Build())
			return
		}
	}

	docs, err := r.runPhase(ctx, ps, pipeline.PhaseInput, nil)
	if err != nil {
		r.fail(ctx, ps, err)
		return
	}
	ps.publish(docs)

	if cached, hit := r.checkCache(ctx, ps, docs); hit {
		ps.mu.Lock()
		ps.processSkipped = true
		ps.mu.Unlock()
		docs = cached
		r.e.recorder.IncPhaseResult(pipeline.PhaseProcess.String(), metrics.ResultSkipped)
		logger.Info("Process phase skipped, inputs unchanged", logfields.Documents(len(docs)))
	} else {
		docs, err = r.runPhase(ctx, ps, pipeline.PhaseProcess, docs)
		if err != nil {
			r.fail(ctx, ps, err)
			return
		}
	}
	ps.publishProcess(docs)

	if err := r.awaitRenderBarrier(ctx, ps); err != nil {
		r.fail(ctx, ps, err)
		return
	}

	for _, phase := range []pipeline.Phase{pipeline.PhaseRender, pipeline.PhaseWrite} {
		docs, err = r.runPhase(ctx, ps, phase, docs)
		if err != nil {
			r.fail(ctx, ps, err)
			return
		}
		ps.publish(docs)
	}

	if r.e.settings.ProcessCache {
		if d, err := digest(docs, nil); err == nil {
			ps.mu.Lock()
			ps.outputDigest = d
			ps.mu.Unlock()
		}
	}
	if err := ps.transition(pipeline.StateDone); err != nil {
		r.fail(ctx, ps, err)
		return
	}
	logger.Info("Pipeline completed", logfields.Documents(len(docs)), logfields.Duration(time.Since(start)))
}

// checkCache computes the Input digest and reports whether Process can be
// skipped.
func (r *run) checkCache(ctx context.Context, ps *pipelineState, docs []*document.Document) ([]*document.Document, bool) {
	if !r.e.settings.ProcessCache {
		return nil, false
	}
	deps := make([]uint64, 0, len(ps.deps))
	for _, dep := range ps.deps {
		dep.mu.Lock()
		deps = append(deps, dep.outputDigest)
		dep.mu.Unlock()
	}
	d, err := digest(docs, deps)
	if err != nil {
		observability.Logger(ctx, r.e.logger).Debug("Input digest unavailable", logfields.Error(err))
		return nil, false
	}
	ps.mu.Lock()
	ps.inputDigest, ps.hasDigest = d, true
	ps.mu.Unlock()

	return r.e.cachedProcess(ps.p, d)
}

// awaitRenderBarrier blocks until every non-isolated pipeline ordered before
// ps has finished its Process phase.
func (r *run) awaitRenderBarrier(ctx context.Context, ps *pipelineState) error {
	if ps.p.Isolated {
		return nil
	}
	for _, q := range r.order[:ps.pos] {
		if q.p.Isolated {
			continue
		}
		select {
		case <-q.processDone:
		case <-ctx.Done():
			return canceled(ctx)
		}
	}
	return nil
}

func (r *run) runPhase(ctx context.Context, ps *pipelineState, phase pipeline.Phase, docs []*document.Document) ([]*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceled(ctx)
	}
	if err := ps.transition(pipeline.StateFor(phase)); err != nil {
		return nil, err
	}

	ctx = observability.WithPhase(ctx, phase.String())
	ctx, span := observability.StartSpan(ctx, r.e.logger, "phase")
	pc := r.moduleContext(ctx, ps, phase)

	var err error
	for _, m := range ps.p.Modules(phase) {
		name := pipeline.NameOf(m)
		var out []*document.Document
		out, err = r.execModule(pc, m, docs)
		if err != nil {
			err = moduleFailure(ctx, err, ps.p.Name, phase, name)
			if !ferrors.HasCategory(err, ferrors.CategoryCanceled) {
				r.e.recorder.IncModuleFailure(name)
			}
			break
		}
		docs = out
	}

	span.SetAttribute(logfields.KeyDocuments, len(docs))
	span.RecordError(err)
	elapsed := span.End()
	r.e.recorder.ObservePhaseDuration(ps.p.Name, phase.String(), elapsed)
	r.e.recorder.IncPhaseResult(phase.String(), resultLabel(err))
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *run) moduleContext(ctx context.Context, ps *pipelineState, phase pipeline.Phase) *pipeline.Context {
	return &pipeline.Context{
		Context:   ctx,
		Pipeline:  ps.p.Name,
		Phase:     phase,
		Documents: r.e.factory,
		FS:        r.e.fs,
		Tracker:   r.e.tracker,
		Outputs:   &outputs{r: r, self: ps, phase: phase},
		Logger:    observability.Logger(ctx, r.e.logger),
		Serial:    r.e.settings.Serial,
		TempDir:   r.e.settings.TempDir,
	}
}

func (r *run) fail(ctx context.Context, ps *pipelineState, err error) {
	ps.mu.Lock()
	if ps.state.IsTerminal() {
		ps.mu.Unlock()
		return
	}
	ps.state = pipeline.StateFailed
	ps.err = err
	ps.mu.Unlock()

	logger := observability.Logger(ctx, r.e.logger)
	if ferrors.HasCategory(err, ferrors.CategoryCanceled) {
		logger.Warn("Pipeline canceled", logfields.Error(err))
		return
	}
	logger.Error("Pipeline failed", logfields.Error(err))
}

func canceled(ctx context.Context) error {
	return ferrors.CanceledError("run canceled").WithCause(ctx.Err()).Build()
}

// moduleFailure classifies a module error. Errors the module already
// classified keep their category.
func moduleFailure(ctx context.Context, err error, pipelineName string, phase pipeline.Phase, module string) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ferrors.CanceledError("run canceled").
			WithCause(err).
			WithContext("pipeline", pipelineName).
			WithContext("phase", phase.String()).
			Build()
	}
	if ce, ok := err.(*ferrors.ClassifiedError); ok {
		return ce.WithContext("pipeline", pipelineName).
			WithContext("phase", phase.String()).
			WithContext("module", module)
	}
	return ferrors.WrapError(err, ferrors.CategoryModule, fmt.Sprintf("module %s failed in %s/%s", module, pipelineName, phase)).
		WithContext("pipeline", pipelineName).
		WithContext("phase", phase.String()).
		WithContext("module", module).
		Build()
}

func resultLabel(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case ferrors.HasCategory(err, ferrors.CategoryCanceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
