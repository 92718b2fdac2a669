package engine

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// execModule runs m over docs. Per-document modules fan out over the worker
// pool; results keep input order and every document error is reported.
func (r *run) execModule(pc *pipeline.Context, m pipeline.Module, docs []*document.Document) ([]*document.Document, error) {
	dm, ok := m.(pipeline.DocumentModule)
	if !ok {
		return m.Execute(pc, docs)
	}

	results := make([][]*document.Document, len(docs))
	errs := make([]error, len(docs))
	one := func(i int) {
		if err := pc.Err(); err != nil {
			errs[i] = err
			return
		}
		results[i], errs[i] = dm.ExecuteDocument(pc, docs[i])
	}

	if r.e.settings.Serial || len(docs) <= 1 {
		for i := range docs {
			one(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.e.workerLimit())
		for i := range docs {
			g.Go(func() error {
				one(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var failures []error
	for i, err := range errs {
		if err != nil {
			failures = append(failures, fmt.Errorf("document %s: %w", describe(docs[i]), err))
		}
	}
	if len(failures) > 0 {
		return nil, errors.Join(failures...)
	}

	var out []*document.Document
	for _, res := range results {
		out = append(out, res...)
	}
	return out, nil
}

func describe(d *document.Document) string {
	switch {
	case d.Source() != "":
		return d.Source()
	case d.Destination() != "":
		return d.Destination()
	default:
		return d.ID()
	}
}
