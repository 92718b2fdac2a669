package config

import "git.home.luguber.info/inful/sitepipe/internal/foundation/normalization"

// TrackerBackend selects the write-history snapshot store.
type TrackerBackend string

const (
	TrackerBackendJSON   TrackerBackend = "json"
	TrackerBackendSQLite TrackerBackend = "sqlite"
	// TrackerBackendNone disables persistence; history lives only in memory.
	TrackerBackendNone TrackerBackend = "none"
)

var trackerBackendNormalizer = normalization.NewNormalizer("tracker backend", map[string]TrackerBackend{
	"json":    TrackerBackendJSON,
	"sqlite":  TrackerBackendSQLite,
	"sqlite3": TrackerBackendSQLite,
	"none":    TrackerBackendNone,
	"memory":  TrackerBackendNone,
}, TrackerBackendJSON)

// ParseTrackerBackend maps raw onto a backend, rejecting unknown names.
func ParseTrackerBackend(raw string) (TrackerBackend, error) {
	return trackerBackendNormalizer.Parse(raw)
}

func (b TrackerBackend) defaultFile() string {
	if b == TrackerBackendSQLite {
		return "writes.db"
	}
	return "writes.json"
}
