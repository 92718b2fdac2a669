package daemon

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
)

// Handler returns the daemon's HTTP routes.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	if d.opts.Registry != nil {
		d.registerRuntimeCollectors(d.opts.Registry)
	}
	mux.Handle(d.opts.Path, metrics.HTTPHandler(d.opts.Registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Status())
	})
	return mux
}

// registerRuntimeCollectors adds Go and process collectors, tolerating a
// registry that already has them.
func (d *Daemon) registerRuntimeCollectors(reg *prom.Registry) {
	for _, c := range []prom.Collector{
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var are prom.AlreadyRegisteredError
			if !errors.As(err, &are) {
				d.logger.Warn("Collector registration failed", logfields.Error(err))
			}
		}
	}
}

func listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
