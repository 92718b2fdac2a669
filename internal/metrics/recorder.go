package metrics

import "time"

// ResultLabel enumerates phase result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel is the final status of a pipeline within a run.
type OutcomeLabel string

const (
	OutcomeDone     OutcomeLabel = "done"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for run, pipeline and phase metrics.
// Implementations must be safe for concurrent use; pipelines report from
// their own goroutines.
type Recorder interface {
	ObservePhaseDuration(pipeline, phase string, d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	IncPipelineOutcome(outcome OutcomeLabel)
	ObserveRunDuration(d time.Duration)
	AddWrites(total, actual int)
	IncModuleFailure(module string)
	SetWorkerConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, string, time.Duration) {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)                 {}
func (NoopRecorder) IncPipelineOutcome(OutcomeLabel)                    {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                   {}
func (NoopRecorder) AddWrites(int, int)                                 {}
func (NoopRecorder) IncModuleFailure(string)                            {}
func (NoopRecorder) SetWorkerConcurrency(int)                           {}
