package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDebouncerCoalesces(t *testing.T) {
	var mu sync.Mutex
	var reasons []string
	d := NewDebouncer(30*time.Millisecond, func(r string) {
		mu.Lock()
		reasons = append(reasons, r)
		mu.Unlock()
	})
	for _, r := range []string{"a", "b", "c"} {
		d.Trigger(r)
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reasons) == 1
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"c"}, reasons)
	mu.Unlock()
}

func TestDebouncerStop(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func(string) { fired.Add(1) })
	d.Trigger("x")
	d.Stop()
	d.Trigger("y")
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestShouldIgnoreEvent(t *testing.T) {
	tests := map[string]bool{
		"/c/page.md":      false,
		"/c/.hidden":      true,
		"/c/page.md~":     true,
		"/c/.page.md.swp": true,
		"/c/page.swx":     true,
		"/c/#page.md#":    true,
		"/c/4913":         true,
		"/c/style.css":    false,
	}
	for p, want := range tests {
		assert.Equal(t, want, shouldIgnoreEvent(p), p)
	}
}

func TestDaemonBuildsInitiallyAndOnTrigger(t *testing.T) {
	var builds atomic.Int32
	reasons := make(chan string, 8)
	d, err := New(func(_ context.Context, reason string) error {
		n := builds.Add(1)
		reasons <- reason
		if n == 2 {
			return errors.New("broken page")
		}
		return nil
	}, Options{Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Equal(t, "initial", <-reasons)
	d.Trigger("manual")
	assert.Equal(t, "manual", <-reasons)

	require.Eventually(t, func() bool { return d.Status().Builds == 2 }, 2*time.Second, 5*time.Millisecond)
	st := d.Status()
	assert.Equal(t, 1, st.Failures)
	assert.Equal(t, "broken page", st.LastError)
	assert.Equal(t, "manual", st.LastReason)
	assert.False(t, st.Running)

	cancel()
	require.NoError(t, <-done)
}

func TestDaemonRebuildsOnFileChange(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(out, 0o755))

	reasons := make(chan string, 8)
	d, err := New(func(_ context.Context, reason string) error {
		reasons <- reason
		return nil
	}, Options{
		WatchRoots: []string{root},
		Ignore:     []string{out},
		Debounce:   20 * time.Millisecond,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()
	require.Equal(t, "initial", <-reasons)

	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.md"), []byte("# hi"), 0o644))

	select {
	case r := <-reasons:
		assert.Equal(t, "change", r)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}
}

func TestHandlerServesStatusHealthAndMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	d, err := New(func(context.Context, string) error { return nil }, Options{Registry: reg, Logger: quietLogger()})
	require.NoError(t, err)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	_ = resp.Body.Close()
	assert.Zero(t, st.Builds)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")

	// A second handler on the same registry must not fail.
	_ = d.Handler()
}

func TestNewRequiresBuild(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)
}
