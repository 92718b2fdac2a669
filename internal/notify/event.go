// Package notify publishes run summaries to NATS.
package notify

import (
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

// RunEvent is the JSON payload published after every run.
type RunEvent struct {
	RunID        string          `json:"run_id"`
	Timestamp    time.Time       `json:"timestamp"`
	DurationMS   int64           `json:"duration_ms"`
	Succeeded    bool            `json:"succeeded"`
	Failed       int             `json:"failed"`
	TotalWrites  int             `json:"total_writes"`
	ActualWrites int             `json:"actual_writes"`
	Pipelines    []PipelineEvent `json:"pipelines"`
}

// PipelineEvent summarizes one pipeline of a run.
type PipelineEvent struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	DurationMS     int64  `json:"duration_ms"`
	ProcessSkipped bool   `json:"process_skipped,omitempty"`
	Documents      int    `json:"documents"`
	Error          string `json:"error,omitempty"`
}

// NewRunEvent converts a report.
func NewRunEvent(r *engine.Report, now time.Time) *RunEvent {
	ev := &RunEvent{
		RunID:        r.RunID,
		Timestamp:    now.UTC(),
		DurationMS:   r.Duration.Milliseconds(),
		Succeeded:    r.Succeeded(),
		Failed:       r.FailedCount(),
		TotalWrites:  r.TotalWrites,
		ActualWrites: r.ActualWrites,
		Pipelines:    make([]PipelineEvent, 0, len(r.Pipelines)),
	}
	for _, p := range r.Pipelines {
		pe := PipelineEvent{
			Name:           p.Name,
			State:          p.State.String(),
			DurationMS:     p.Duration.Milliseconds(),
			ProcessSkipped: p.ProcessSkipped,
			Documents:      len(p.Outputs),
		}
		if p.Err != nil {
			pe.Error = p.Err.Error()
		}
		ev.Pipelines = append(ev.Pipelines, pe)
	}
	return ev
}
