package engine

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// cacheEntry holds Process outputs retained across runs.
type cacheEntry struct {
	digest uint64
	docs   []*document.Document
}

// digest hashes what a pipeline's Process phase depends on: the Input
// outputs and the final outputs of every dependency.
func digest(docs []*document.Document, deps []uint64) (uint64, error) {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	for _, d := range docs {
		fp, err := d.Fingerprint()
		if err != nil {
			return 0, err
		}
		write(d.Source())
		write(d.Destination())
		write(strconv.FormatUint(fp, 16))
	}
	for _, dep := range deps {
		write(strconv.FormatUint(dep, 16))
	}
	return h.Sum64(), nil
}

func (e *Engine) cachedProcess(p *pipeline.Pipeline, d uint64) ([]*document.Document, bool) {
	if !e.settings.ProcessCache || p.AlwaysProcess {
		return nil, false
	}
	entry, ok := e.cache[pipeline.Key(p.Name)]
	if !ok || entry.digest != d {
		return nil, false
	}
	return entry.docs, true
}

// commitCache replaces cache entries with this run's Process outputs.
// Pipelines that failed lose their entry.
func (e *Engine) commitCache(r *run) {
	if !e.settings.ProcessCache {
		return
	}
	for _, ps := range r.states {
		key := pipeline.Key(ps.p.Name)
		switch {
		case ps.state != pipeline.StateDone || ps.p.AlwaysProcess || !ps.hasDigest:
			delete(e.cache, key)
		case ps.processSkipped:
			// Entry already holds these documents.
		default:
			e.cache[key] = &cacheEntry{digest: ps.inputDigest, docs: ps.processed}
		}
	}
}

// retainer returns a predicate matching documents held by the process cache.
func (e *Engine) retainer() func(*document.Document) bool {
	held := make(map[*document.Document]struct{})
	for _, entry := range e.cache {
		for _, d := range entry.docs {
			held[d] = struct{}{}
		}
	}
	return func(d *document.Document) bool {
		_, ok := held[d]
		return ok
	}
}
