// Package metrics provides the run metrics hooks used by the engine.
//
// Components receive a Recorder through options and default to NoopRecorder,
// so metrics never need nil checks at call sites. PrometheusRecorder registers
// its collectors on a caller-supplied registry, which the CLI either serves
// over HTTP (watch mode) or writes to a node_exporter textfile after a build.
package metrics
