// Package engine schedules pipelines and their phases.
//
// Pipelines run concurrently, each on its own goroutine, after every declared
// dependency has finished. Inside a pipeline the four phases run in order and
// per-document modules fan out over a bounded worker pool. Before Render, a
// non-isolated pipeline waits until every non-isolated pipeline ordered before
// it has finished Process, so Render and Write can read those outputs without
// declaring a dependency.
//
// Documents created during a run are disposed when the run ends, unless the
// process cache retains them for the next run.
package engine
