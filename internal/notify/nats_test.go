package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
	"git.home.luguber.info/inful/sitepipe/internal/retry"
)

type fakeConn struct {
	subject    string
	data       []byte
	publishErr error
	flushErr   error
	flushed    bool
	closed     bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.publishErr
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("flush without deadline")
	}
	f.flushed = true
	return f.flushErr
}

func (f *fakeConn) Close() { f.closed = true }

func testReport() *engine.Report {
	return &engine.Report{
		RunID:        "run-1",
		Duration:     1500 * time.Millisecond,
		TotalWrites:  4,
		ActualWrites: 1,
		Pipelines: []engine.PipelineResult{
			{Name: "pages", State: pipeline.StateDone, Duration: 1200 * time.Millisecond, ProcessSkipped: true},
			{Name: "feed", State: pipeline.StateFailed, Err: errors.New("boom")},
		},
	}
}

func TestNotifyPublishesRunEvent(t *testing.T) {
	conn := &fakeConn{}
	n := New(conn, "sitepipe.runs", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	require.NoError(t, n.Notify(context.Background(), testReport()))
	assert.Equal(t, "sitepipe.runs", conn.subject)
	assert.True(t, conn.flushed)

	var ev RunEvent
	require.NoError(t, json.Unmarshal(conn.data, &ev))
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, fixed, ev.Timestamp)
	assert.EqualValues(t, 1500, ev.DurationMS)
	assert.False(t, ev.Succeeded)
	assert.Equal(t, 1, ev.Failed)
	assert.Equal(t, 4, ev.TotalWrites)
	assert.Equal(t, 1, ev.ActualWrites)
	require.Len(t, ev.Pipelines, 2)
	assert.Equal(t, PipelineEvent{Name: "pages", State: pipeline.StateDone.String(), DurationMS: 1200, ProcessSkipped: true}, ev.Pipelines[0])
	assert.Equal(t, "boom", ev.Pipelines[1].Error)

	require.NoError(t, n.Close())
	assert.True(t, conn.closed)
}

func TestNotifyErrorsAreNetworkErrors(t *testing.T) {
	for name, conn := range map[string]*fakeConn{
		"publish": {publishErr: errors.New("no responders")},
		"flush":   {flushErr: errors.New("timeout")},
	} {
		t.Run(name, func(t *testing.T) {
			n := New(conn, "s", 0, nil)
			err := n.Notify(context.Background(), testReport())
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
		})
	}
}

// flakyConn fails the first failures publishes.
type flakyConn struct {
	fakeConn
	failures  int
	publishes int
}

func (f *flakyConn) Publish(subject string, data []byte) error {
	f.publishes++
	if f.publishes <= f.failures {
		return errors.New("connection reset")
	}
	return f.fakeConn.Publish(subject, data)
}

func TestNotifyRetriesTransientFailures(t *testing.T) {
	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)

	conn := &flakyConn{failures: 2}
	n := New(conn, "sitepipe.runs", time.Second, nil).WithRetry(policy)
	require.NoError(t, n.Notify(context.Background(), testReport()))
	assert.Equal(t, 3, conn.publishes)
	assert.True(t, conn.flushed)

	down := &flakyConn{failures: 10}
	n = New(down, "sitepipe.runs", time.Second, nil).WithRetry(policy)
	err := n.Notify(context.Background(), testReport())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
	assert.Equal(t, 3, down.publishes)
}
