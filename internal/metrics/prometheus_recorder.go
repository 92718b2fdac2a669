package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitepipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry          *prom.Registry
	phaseDuration     *prom.HistogramVec
	phaseResults      *prom.CounterVec
	pipelineOutcomes  *prom.CounterVec
	runDuration       prom.Histogram
	writes            *prom.CounterVec
	moduleFailures    *prom.CounterVec
	workerConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of pipeline phases",
		Buckets:   prom.DefBuckets,
	}, []string{"pipeline", "phase"})
	pr.phaseResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "phase_results_total",
		Help:      "Phase result counts by outcome",
	}, []string{"phase", "result"})
	pr.pipelineOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_outcomes_total",
		Help:      "Pipeline outcomes by final state",
	}, []string{"outcome"})
	pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Total run duration",
		Buckets:   prom.DefBuckets,
	})
	pr.writes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "writes_total",
		Help:      "Output writes by kind (total includes skipped unchanged outputs)",
	}, []string{"kind"})
	pr.moduleFailures = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "module_failures_total",
		Help:      "Module failures by module name",
	}, []string{"module"})
	pr.workerConcurrency = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_concurrency",
		Help:      "Per-document worker limit used by the last run",
	})
	reg.MustRegister(pr.phaseDuration, pr.phaseResults, pr.pipelineOutcomes, pr.runDuration,
		pr.writes, pr.moduleFailures, pr.workerConcurrency)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObservePhaseDuration(pipeline, phase string, d time.Duration) {
	if p == nil {
		return
	}
	p.phaseDuration.WithLabelValues(pipeline, phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPipelineOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.pipelineOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddWrites(total, actual int) {
	if p == nil {
		return
	}
	p.writes.WithLabelValues("total").Add(float64(total))
	p.writes.WithLabelValues("actual").Add(float64(actual))
}

func (p *PrometheusRecorder) IncModuleFailure(module string) {
	if p == nil {
		return
	}
	p.moduleFailures.WithLabelValues(module).Inc()
}

func (p *PrometheusRecorder) SetWorkerConcurrency(n int) {
	if p == nil {
		return
	}
	p.workerConcurrency.Set(float64(n))
}
